package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hmogawa/receipt-ocr-batch/internal/llm"
)

// Request shapes for the generateContent REST endpoint (v1beta).
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

// Infer implements llm.Inferer: one image plus the instruction prompt in a
// single generateContent call, JSON-typed output requested. The reply is
// reduced to plain text via the extraction strategy chain; shape surprises
// never error, only transport/API failures do.
func (c *Client) Infer(ctx context.Context, imagePath, prompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	data, mimeType, err := readImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	c.logger.Info("inference.request",
		"req_id", rid,
		"model", c.cfg.Model,
		"image", filepath.Base(imagePath),
		"mime_type", mimeType,
		"image_bytes", len(data),
	)

	body := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &generationConfig{ResponseMIMEType: "application/json"},
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/models/" + c.cfg.Model + ":generateContent"
	headers := map[string]string{"x-goog-api-key": c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.http, url, body, headers, c.logger)
	if err != nil {
		c.logger.Error("inference.error",
			"req_id", rid,
			"status", status,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	text := ExtractReplyText(raw)
	c.logger.Info("inference.ok",
		"req_id", rid,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// readImage loads the file and resolves its MIME type from the extension.
func readImage(path string) ([]byte, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "png":
			mt = "image/png"
		case "webp":
			mt = "image/webp"
		case "bmp":
			mt = "image/bmp"
		case "tiff":
			mt = "image/tiff"
		default:
			mt = "application/octet-stream"
		}
	}
	return b, mt, nil
}
