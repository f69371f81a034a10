package controllers

import (
	"context"
	"io"

	"convo/sources/storage"
	"convo/utils/types"
)

type UploadController struct {
	store *storage.MinIOClient
}

func NewUploadController(store *storage.MinIOClient) *UploadController {
	return &UploadController{store: store}
}

// Upload stores a chat image and returns the ref to attach to the next
// user message.
func (c *UploadController) Upload(ctx context.Context, contentType string, size int64, r io.Reader) (*types.UploadResponse, error) {
	ref, err := c.store.UploadImage(ctx, contentType, size, r)
	if err != nil {
		return nil, err
	}
	return &types.UploadResponse{ImageRef: ref}, nil
}
