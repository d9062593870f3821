package imagestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// FormField is the multipart field carrying the image.
const FormField = "image"

// Response is the upload endpoint's reply. Older endpoints answer with
// image_url instead of url.
type Response struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

func (r Response) Location() string {
	if r.URL != "" {
		return r.URL
	}
	return r.ImageURL
}

// Client uploads images to a remote endpoint over multipart POST.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
}

func NewClient(endpoint string) *Client {
	cl := retryablehttp.NewClient()
	cl.RetryMax = 3
	cl.RetryWaitMin = time.Millisecond * 500
	cl.RetryWaitMax = time.Second * 5
	cl.ErrorHandler = retryablehttp.PassthroughErrorHandler
	cl.Logger = slog.Default()

	return &Client{endpoint: endpoint, http: cl}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (c *Client) Upload(ctx context.Context, f File) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FormField, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", f.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body.Bytes())
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &UploadError{Message: "network error", Err: err}
	}
	defer resp.Body.Close()

	var res Response
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", &UploadError{
			Message: fmt.Sprintf("unexpected response (%d)", resp.StatusCode),
			Status:  resp.StatusCode,
			Err:     err,
		}
	}

	if !res.Success || res.Location() == "" {
		msg := res.Message
		if msg == "" {
			msg = "upload failed"
		}
		return "", &UploadError{Message: msg, Status: resp.StatusCode}
	}

	return res.Location(), nil
}
