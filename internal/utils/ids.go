package utils

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateIDWithPrefix returns an id like "ckpt_k3j2..." with a nanoid of
// the given length after the prefix.
func GenerateIDWithPrefix(prefix string, length int) string {
	id, err := gonanoid.Generate(idAlphabet, length)
	if err != nil {
		// gonanoid only fails when the platform RNG is broken
		panic(fmt.Sprintf("id generation failed: %v", err))
	}
	return fmt.Sprintf("%s_%s", prefix, id)
}
