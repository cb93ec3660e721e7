package rantly

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"

	pkgerrs "github.com/rantly-unofficial/go-rantly/pkg/errors"
	"github.com/rantly-unofficial/go-rantly/pkg/types"
)

// UploadFile uploads a file (audio or image) and returns its descriptor.
// The upload goes through the long-timeout client configured via
// Config.UploadTimeout. The request body is buffered in memory so the
// single 401-triggered retry can replay it.
func (c *Client) UploadFile(ctx context.Context, request *types.UploadRequest) (*types.FileInfo, error) {
	if request == nil || request.Body == nil {
		return nil, &pkgerrs.ConfigError{Field: "UploadRequest", Message: "upload request and body are required"}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	name := request.Name
	if name == "" {
		name = "file"
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, &pkgerrs.TransportError{Operation: "build upload", Err: err}
	}
	if _, err := io.Copy(part, request.Body); err != nil {
		return nil, &pkgerrs.TransportError{Operation: "read upload body", Err: err}
	}
	if request.ContentType != "" {
		if err := writer.WriteField("contentType", request.ContentType); err != nil {
			return nil, &pkgerrs.TransportError{Operation: "build upload", Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &pkgerrs.TransportError{Operation: "build upload", Err: err}
	}

	req, err := c.client.NewRequest(ctx, http.MethodPost, "files", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var info types.FileInfo
	if err := c.client.DoUpload(req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
