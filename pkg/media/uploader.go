package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Uploader stores a video file on the external media host and returns a
// durable playable URL. The system consumes only the returned URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, file io.Reader) (string, error)
}

// HostClient performs an unsigned multipart upload against a Cloudinary-style
// endpoint: the file plus a fixed preset identifier, no credentials.
type HostClient struct {
	uploadURL string
	preset    string
	client    *http.Client
}

func NewHostClient(uploadURL, preset string, timeout time.Duration) *HostClient {
	return &HostClient{
		uploadURL: uploadURL,
		preset:    preset,
		client:    &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HostClient) Upload(ctx context.Context, filename string, file io.Reader) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		if err = form.WriteField("upload_preset", c.preset); err != nil {
			return
		}
		var part io.Writer
		if part, err = form.CreateFormFile("file", filename); err != nil {
			return
		}
		if _, err = io.Copy(part, file); err != nil {
			return
		}
		err = form.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, pr)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}
	defer resp.Body.Close()

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error.Message != "" {
			return "", fmt.Errorf("media host rejected upload: %s", result.Error.Message)
		}
		return "", fmt.Errorf("media host rejected upload: status %d", resp.StatusCode)
	}

	if result.SecureURL == "" {
		return "", fmt.Errorf("media host returned no URL")
	}

	return result.SecureURL, nil
}
