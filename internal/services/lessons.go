package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
)

// maxPages bounds cursor following so a server that never ends pagination cannot hang a run.
const maxPages = 10_000

// lessonResource is one lesson as the API returns it.
type lessonResource struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Position     *int   `json:"position"`
	CollectionID int    `json:"collectionId"`
	Status       string `json:"status"`
}

// lessonPage is one page of a collection's lessons.
type lessonPage struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results *[]lessonResource `json:"results"`
}

func (r lessonResource) descriptor(collectionID int) (models.ItemDescriptor, error) {
	if r.ID <= 0 {
		return models.ItemDescriptor{}, fmt.Errorf("lesson has no id")
	}
	if r.Position == nil || *r.Position < 1 {
		return models.ItemDescriptor{}, fmt.Errorf("lesson %d has no valid position", r.ID)
	}
	if r.CollectionID == 0 {
		r.CollectionID = collectionID
	}
	return models.ItemDescriptor{
		ID:           r.ID,
		Title:        r.Title,
		Position:     *r.Position,
		CollectionID: r.CollectionID,
		Status:       r.Status,
	}, nil
}

func (c *Client) collectionEndpoint(id int) string {
	return fmt.Sprintf("/api/v3/%s/collections/%d/lessons/?page_size=%d", c.language, id, c.pageSize)
}

func (c *Client) lessonEndpoint(id int) string {
	return fmt.Sprintf("/api/v3/%s/lessons/%d/", c.language, id)
}

func (c *Client) importEndpoint() string {
	return fmt.Sprintf("/api/v3/%s/lessons/import/", c.language)
}

// FetchCollection retrieves every lesson of a collection by following "next" cursors
// until the server returns null. Items keep the server's page order.
func (c *Client) FetchCollection(ctx context.Context, collectionID int) (*models.CollectionSnapshot, error) {
	if collectionID <= 0 {
		return nil, fmt.Errorf("%w: collection id must be positive, got %d", shared.ErrInvalidArgument, collectionID)
	}

	snapshot := &models.CollectionSnapshot{CollectionID: collectionID, Items: []models.ItemDescriptor{}}
	resourceURL := c.CollectionURL(collectionID)
	endpoint := c.collectionEndpoint(collectionID)
	seen := make(map[string]bool)

	for page := 1; endpoint != ""; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("%w: more than %d pages; see %s", shared.ErrSchemaDrift, maxPages, resourceURL)
		}
		seen[c.resolve(endpoint)] = true

		resp, err := c.Execute(ctx, Request{Method: http.MethodGet, Endpoint: endpoint, ResourceURL: resourceURL})
		if err != nil {
			return nil, err
		}

		var body lessonPage
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return nil, fmt.Errorf("%w: page %d of collection %d: %v; see %s", shared.ErrSchemaDrift, page, collectionID, err, resourceURL)
		}
		if body.Results == nil {
			return nil, fmt.Errorf("%w: page %d of collection %d has no results field; see %s", shared.ErrSchemaDrift, page, collectionID, resourceURL)
		}

		for _, r := range *body.Results {
			item, err := r.descriptor(collectionID)
			if err != nil {
				return nil, fmt.Errorf("%w: page %d of collection %d: %v; see %s", shared.ErrSchemaDrift, page, collectionID, err, resourceURL)
			}
			snapshot.Items = append(snapshot.Items, item)
		}
		c.logger.Debug("fetched page", "collection", collectionID, "page", page, "items", len(*body.Results))

		endpoint = ""
		if body.Next != nil && strings.TrimSpace(*body.Next) != "" {
			endpoint = *body.Next
			if seen[c.resolve(endpoint)] {
				return nil, fmt.Errorf("%w: cursor %s repeats; see %s", shared.ErrSchemaDrift, endpoint, resourceURL)
			}
		}
	}

	c.checkPositions(snapshot)
	return snapshot, nil
}

// checkPositions warns when positions are not the contiguous sequence 1..n in page order.
// Move targets assume contiguous positions, so the warning points at the likely cause of odd results.
func (c *Client) checkPositions(snapshot *models.CollectionSnapshot) {
	for i, item := range snapshot.Items {
		if item.Position != i+1 {
			c.logger.Warn("collection positions are not contiguous",
				"collection", snapshot.CollectionID,
				"lesson", item.ID,
				"position", item.Position,
				"index", i+1,
			)
			return
		}
	}
}

type movePayload struct {
	Position int `json:"position"`
}

// MovePosition moves one lesson to a 1-based position within its collection.
func (c *Client) MovePosition(ctx context.Context, op models.MoveOperation) error {
	if op.ID <= 0 || op.TargetPosition < 1 {
		return fmt.Errorf("%w: invalid move %d -> %d", shared.ErrInvalidArgument, op.ID, op.TargetPosition)
	}

	body, err := json.Marshal(movePayload{Position: op.TargetPosition})
	if err != nil {
		return fmt.Errorf("failed to encode move: %w", err)
	}

	_, err = c.Execute(ctx, Request{
		Method:      http.MethodPatch,
		Endpoint:    c.lessonEndpoint(op.ID),
		Body:        body,
		ContentType: "application/json",
		ResourceURL: c.LessonURL(op.ID),
	})
	return err
}

// PostLesson imports a lesson into a collection and returns the created lesson.
func (c *Client) PostLesson(ctx context.Context, collectionID int, upload models.LessonUpload) (*models.ItemDescriptor, error) {
	if collectionID <= 0 {
		return nil, fmt.Errorf("%w: collection id must be positive, got %d", shared.ErrInvalidArgument, collectionID)
	}
	if strings.TrimSpace(upload.Title) == "" {
		return nil, fmt.Errorf("%w: lesson title is empty", shared.ErrInvalidArgument)
	}

	body, contentType, err := encodeUpload(collectionID, upload)
	if err != nil {
		return nil, err
	}

	resp, err := c.Execute(ctx, Request{
		Method:      http.MethodPost,
		Endpoint:    c.importEndpoint(),
		Body:        body,
		ContentType: contentType,
		ResourceURL: c.CollectionURL(collectionID),
	})
	if err != nil {
		return nil, err
	}

	var created lessonResource
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return nil, fmt.Errorf("%w: import response for %q: %v", shared.ErrSchemaDrift, upload.Title, err)
	}
	if created.ID <= 0 {
		return nil, fmt.Errorf("%w: import response for %q has no lesson id", shared.ErrSchemaDrift, upload.Title)
	}

	item := models.ItemDescriptor{
		ID:           created.ID,
		Title:        created.Title,
		CollectionID: collectionID,
		Status:       created.Status,
	}
	if created.Position != nil {
		item.Position = *created.Position
	}
	if item.Title == "" {
		item.Title = upload.Title
	}
	return &item, nil
}

func encodeUpload(collectionID int, upload models.LessonUpload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	status := upload.Status
	if status == "" {
		status = "private"
	}
	fields := [][2]string{
		{"title", upload.Title},
		{"collection", fmt.Sprint(collectionID)},
		{"text", upload.Text},
		{"status", status},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to encode %s: %w", f[0], err)
		}
	}

	if len(upload.Audio) > 0 {
		name := upload.AudioName
		if name == "" {
			name = "audio"
		}
		part, err := w.CreateFormFile("audio", name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode audio: %w", err)
		}
		if _, err := part.Write(upload.Audio); err != nil {
			return nil, "", fmt.Errorf("failed to encode audio: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish upload body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
