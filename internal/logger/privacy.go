package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const defaultHashSalt = "default-salt-change-in-production"

var hashSalt = defaultHashSalt

// InitHashSalt loads the salt used for log hashing from LOG_HASH_SALT.
// In production, set LOG_HASH_SALT so hashes cannot be reversed by brute force.
func InitHashSalt() {
	hashSalt = os.Getenv("LOG_HASH_SALT")
	if hashSalt == "" {
		hashSalt = defaultHashSalt
	}
}

func hashID(kind string, id int64) string {
	data := fmt.Sprintf("%s:%d:%s", kind, id, hashSalt)
	hash := sha256.Sum256([]byte(data))
	// First 8 characters are enough to correlate log lines.
	return hex.EncodeToString(hash[:])[:8]
}

// HashUserID creates a privacy-preserving hash of a user ID.
// Approver and submitter ids are logged through this so audit data stays in the database.
func HashUserID(userID int64) string {
	return hashID("user", userID)
}

// HashChatID creates a privacy-preserving hash of a Telegram chat ID.
func HashChatID(chatID int64) string {
	return hashID("chat", chatID)
}

// SanitizeComment redacts a decision comment but keeps its shape for debugging.
func SanitizeComment(comment string) string {
	if comment == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(strings.Fields(comment)), len(comment))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
