package cloudinary

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client uploads receipt images for expenses and shopping entries.
type Client interface {
	UploadReceipt(ctx context.Context, file io.Reader, publicID string) (url string, err error)
}

const receiptFolder = "messmate/receipts"

// uploads are capped at 1200px wide with automatic quality and format
const receiptEager = "q_auto,f_auto,w_1200,c_limit"

var eagerAsyncFalse = false

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

func (c *clientImpl) UploadReceipt(ctx context.Context, file io.Reader, publicID string) (string, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     receiptFolder,
		PublicID:   publicID,
		Eager:      receiptEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return "", err
	}
	if len(result.Eager) > 0 && result.Eager[0].SecureURL != "" {
		return result.Eager[0].SecureURL, nil
	}
	return result.SecureURL, nil
}

// NewClientFromParams builds a Client from Cloudinary credentials. Returns a
// nil-safe disabled client when credentials are absent.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	if cloudName == "" {
		return disabledClient{}, nil
	}
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{cloudName: cloudName, uploader: up}, nil
}

type disabledClient struct{}

func (disabledClient) UploadReceipt(ctx context.Context, file io.Reader, publicID string) (string, error) {
	return "", fmt.Errorf("receipt storage not configured")
}
