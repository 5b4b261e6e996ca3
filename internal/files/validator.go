// Package files validates chat attachments, both ones read from disk by the
// CLI and ones received inline as data URLs by the server.
package files

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// MaxAttachmentSize is the largest decoded attachment accepted in a chat room.
const MaxAttachmentSize = 5 << 20

// dataURLHeaderSlack covers the "data:<mime>;base64," prefix.
const dataURLHeaderSlack = 256

var (
	ErrInvalid  = errors.New("invalid attachment")
	ErrTooLarge = errors.New("attachment too large")
)

// Attachment describes a file shared in a chat room.
type Attachment struct {
	Name    string
	Type    string
	Size    int64
	DataURL string
}

// MaxDataURLLength is the longest data URL that can carry MaxAttachmentSize bytes.
func MaxDataURLLength() int {
	return base64.StdEncoding.EncodedLen(MaxAttachmentSize) + dataURLHeaderSlack
}

// ValidateAttachment checks an inline attachment and fills in a MIME type
// from the file extension when none was given.
func ValidateAttachment(a Attachment) (Attachment, error) {
	name := filepath.Base(strings.TrimSpace(a.Name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return Attachment{}, fmt.Errorf("%w: file name is required", ErrInvalid)
	}

	if a.Size <= 0 {
		return Attachment{}, fmt.Errorf("%w: %s: file is empty", ErrInvalid, name)
	}
	if a.Size > MaxAttachmentSize {
		return Attachment{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, name, MaxAttachmentSize)
	}

	if !strings.HasPrefix(a.DataURL, "data:") {
		return Attachment{}, fmt.Errorf("%w: %s: payload must be a data URL", ErrInvalid, name)
	}
	if len(a.DataURL) > MaxDataURLLength() {
		return Attachment{}, fmt.Errorf("%w: %s: encoded payload exceeds limit", ErrTooLarge, name)
	}

	return Attachment{
		Name:    name,
		Type:    detectType(name, a.Type),
		Size:    a.Size,
		DataURL: a.DataURL,
	}, nil
}

// LoadAttachment reads a file from disk and encodes it as a data URL.
func LoadAttachment(path string) (Attachment, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("%s: failed to get absolute path: %w", path, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Attachment{}, fmt.Errorf("%s: file does not exist", path)
		}
		return Attachment{}, fmt.Errorf("%s: failed to stat file: %w", path, err)
	}
	if stat.IsDir() {
		return Attachment{}, fmt.Errorf("%w: %s is a directory", ErrInvalid, path)
	}
	if stat.Size() == 0 {
		return Attachment{}, fmt.Errorf("%w: %s: file is empty", ErrInvalid, path)
	}
	if stat.Size() > MaxAttachmentSize {
		return Attachment{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, path, MaxAttachmentSize)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Attachment{}, fmt.Errorf("%s: cannot read file (check permissions): %w", path, err)
	}

	name := filepath.Base(absPath)
	mimeType := detectType(name, "")
	return Attachment{
		Name:    name,
		Type:    mimeType,
		Size:    int64(len(data)),
		DataURL: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

func detectType(name, given string) string {
	if given = strings.TrimSpace(given); given != "" {
		return given
	}
	// Detect MIME type from file extension
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
