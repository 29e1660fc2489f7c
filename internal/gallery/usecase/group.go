package usecase

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// uploadBatch carries the identity of one upload batch. A value is created per
// Upload call and never stored anywhere else, so concurrent batches cannot see
// each other's group id.
type uploadBatch struct {
	groupID string
	attrs   domain.Attributes
}

func newUploadBatch(attrs domain.Attributes) uploadBatch {
	return uploadBatch{groupID: uuid.NewString(), attrs: attrs}
}

// object prepares the stored object for one payload of the batch.
func (b uploadBatch) object(file domain.UploadFile) domain.StoredObject {
	id := primitive.NewObjectID().Hex()
	ext := filepath.Ext(file.OriginalName)
	token := strings.ReplaceAll(uuid.NewString(), "-", "")

	contentType := file.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			contentType = byExt
		}
	}

	return domain.StoredObject{
		ID:          id,
		Filename:    id + "-" + token + ext,
		ContentType: contentType,
		Length:      file.Size,
		Metadata: domain.Metadata{
			GroupID:    b.groupID,
			Attributes: b.attrs,
		},
	}
}
