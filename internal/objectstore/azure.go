package objectstore

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureStore stores objects in an Azure Blob Storage container.
type AzureStore struct {
	client    *azblob.Client
	container string
	baseURL   string
}

// NewAzureStore creates an AzureStore using shared-key authentication.
func NewAzureStore(accountName, accountKey, container, publicBaseURL string) (*AzureStore, error) {
	if accountName == "" || accountKey == "" || container == "" {
		return nil, fmt.Errorf("Azure account name, key and container are required") //nolint:staticcheck // proper noun
	}
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	if publicBaseURL == "" {
		publicBaseURL = serviceURL + "/" + container
	}
	return &AzureStore{client: client, container: container, baseURL: publicBaseURL}, nil
}

// Put uploads body to key.
func (s *AzureStore) Put(ctx context.Context, key, contentType string, body io.Reader, _ int64) error {
	if err := validateKey(key); err != nil {
		return err
	}
	cacheControl := "max-age=3600"
	_, err := s.client.UploadStream(ctx, s.container, key, body, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType:  &contentType,
			BlobCacheControl: &cacheControl,
		},
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", s.container, key, err)
	}
	return nil
}

// Delete removes keys; missing blobs are ignored.
func (s *AzureStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return err
		}
		_, err := s.client.DeleteBlob(ctx, s.container, key, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
			return fmt.Errorf("delete %s/%s: %w", s.container, key, err)
		}
	}
	return nil
}

// PublicURL returns the public URL for key.
func (s *AzureStore) PublicURL(key string) string {
	return joinURL(s.baseURL, key)
}
