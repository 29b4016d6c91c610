package runtime

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/ethpandaops/allure-runtime/pkg/identity"
	"github.com/ethpandaops/allure-runtime/pkg/message"
	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// AttachmentSuffix is inserted between the identifier and the extension of
// attachment sources.
const AttachmentSuffix = "-attachment"

// WriteAttachment hands attachment content to the writer and references it
// from the innermost open step of rootID, or from rootID itself. Content is
// read from a.Path when a.Content is empty.
func (r *Runtime) WriteAttachment(rootID string, a message.Attachment) error {
	r.mu.Lock()
	root, ok := r.lookup(rootID)
	if !ok {
		r.drop(rootID, "attachment")
		r.mu.Unlock()
		return nil
	}
	if root.stopped {
		r.drop(rootID, "attachment")
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	ref := model.Attachment{
		Name:   a.Name,
		Source: AttachmentSource(a),
		Type:   a.ContentType,
	}
	if ref.Type == "" && a.Path != "" {
		ref.Type = mime.TypeByExtension(filepath.Ext(a.Path))
	}

	var err error
	if len(a.Content) == 0 && a.Path != "" {
		err = r.writer.WriteAttachmentFromPath(ref.Source, a.Path)
	} else {
		err = r.writer.WriteAttachment(ref.Source, a.Content)
	}
	if err != nil {
		return fmt.Errorf("failed to write attachment %q: %w", a.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if root, ok = r.lookup(rootID); !ok {
		r.drop(rootID, "attachment")
		return nil
	}
	target := r.current(root)
	target.Attachments = append(target.Attachments, ref)

	return nil
}

var knownExtensions = map[string]string{
	"text/plain":       ".txt",
	"text/csv":         ".csv",
	"text/html":        ".html",
	"text/xml":         ".xml",
	"text/uri-list":    ".uri",
	"application/json": ".json",
	"application/xml":  ".xml",
	"application/zip":  ".zip",
	"image/png":        ".png",
	"image/jpeg":       ".jpg",
	"image/svg+xml":    ".svg",
	"video/webm":       ".webm",
}

// AttachmentSource returns a fresh source name for a. The extension comes
// from a.FileExtension, then the path, then the content type.
func AttachmentSource(a message.Attachment) string {
	ext := a.FileExtension
	if ext == "" && a.Path != "" {
		ext = filepath.Ext(a.Path)
	}
	if ext == "" {
		ext = knownExtensions[strings.ToLower(a.ContentType)]
	}
	if ext == "" && a.ContentType != "" {
		if exts, err := mime.ExtensionsByType(a.ContentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return identity.NewUUID() + AttachmentSuffix + ext
}
