package usecase

import (
	"context"

	"github.com/vasapolrittideah/portfolio-api/shared/storage"
)

// ObjectStore uploads and deletes user assets.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, contentType, folder string) (*storage.Object, error)
	Delete(ctx context.Context, publicID string) error
}

// Notifier delivers email.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Upload is a file received from the client.
type Upload struct {
	Data        []byte
	ContentType string
}

func (u *Upload) empty() bool {
	return u == nil || len(u.Data) == 0
}

const (
	avatarFolder = "avatars"
	resumeFolder = "resumes"
)
