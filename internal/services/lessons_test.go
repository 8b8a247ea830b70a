package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
)

func lessonJSON(id, pos int, title string) string {
	return fmt.Sprintf(`{"id":%d,"position":%d,"title":%q,"collectionId":7,"status":"private","extra":true}`, id, pos, title)
}

func TestFetchCollection(t *testing.T) {
	t.Run("follows cursors in page order", func(t *testing.T) {
		var srv *httptest.Server
		var paths []string
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.RequestURI())
			switch r.URL.Query().Get("page") {
			case "":
				next := srv.URL + "/api/v3/ja/collections/7/lessons/?page=2&page_size=2"
				fmt.Fprintf(w, `{"count":3,"next":%q,"results":[%s,%s]}`, next, lessonJSON(30, 1, "Three"), lessonJSON(10, 2, "One"))
			case "2":
				fmt.Fprintf(w, `{"count":3,"next":null,"results":[%s]}`, lessonJSON(20, 3, "Two"))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		client, _ := newTestClient(t, srv.URL, func(o *ClientOpts) { o.PageSize = 2 })
		snapshot, err := client.FetchCollection(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []int{30, 10, 20}
		got := snapshot.IDs()
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("IDs() = %v, want %v", got, want)
		}
		if snapshot.CollectionID != 7 || snapshot.Items[1].Title != "One" || snapshot.Items[2].Position != 3 {
			t.Errorf("unexpected snapshot: %+v", snapshot)
		}
		if len(paths) != 2 || paths[0] != "/api/v3/ja/collections/7/lessons/?page_size=2" {
			t.Errorf("paths = %v", paths)
		}
	})

	t.Run("relative cursor", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "2" {
				fmt.Fprintf(w, `{"next":null,"results":[%s]}`, lessonJSON(2, 2, "B"))
				return
			}
			fmt.Fprintf(w, `{"next":"/api/v3/ja/collections/7/lessons/?page=2","results":[%s]}`, lessonJSON(1, 1, "A"))
		}))
		defer srv.Close()

		client, _ := newTestClient(t, srv.URL)
		snapshot, err := client.FetchCollection(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(snapshot.Items) != 2 {
			t.Errorf("got %d items, want 2", len(snapshot.Items))
		}
	})

	t.Run("empty collection is valid", func(t *testing.T) {
		srv, _ := scriptedServer(t, reply(http.StatusOK, `{"count":0,"next":null,"results":[]}`))
		client, _ := newTestClient(t, srv.URL)

		snapshot, err := client.FetchCollection(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snapshot.Items == nil || len(snapshot.Items) != 0 {
			t.Errorf("expected empty non-nil items, got %#v", snapshot.Items)
		}
	})

	t.Run("fills missing collection id", func(t *testing.T) {
		srv, _ := scriptedServer(t, reply(http.StatusOK, `{"next":null,"results":[{"id":5,"position":1,"title":"A"}]}`))
		client, _ := newTestClient(t, srv.URL)

		snapshot, err := client.FetchCollection(context.Background(), 9)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snapshot.Items[0].CollectionID != 9 {
			t.Errorf("CollectionID = %d, want 9", snapshot.Items[0].CollectionID)
		}
	})

	t.Run("schema drift is fatal", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"not json", `<html>maintenance</html>`},
			{"missing results", `{"next":null}`},
			{"results not a list", `{"next":null,"results":{}}`},
			{"missing id", `{"next":null,"results":[{"position":1,"title":"A"}]}`},
			{"missing position", `{"next":null,"results":[{"id":1,"title":"A"}]}`},
			{"wrong id type", `{"next":null,"results":[{"id":"one","position":1}]}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv, _ := scriptedServer(t, reply(http.StatusOK, tt.body))
				client, _ := newTestClient(t, srv.URL)

				_, err := client.FetchCollection(context.Background(), 7)
				if !errors.Is(err, shared.ErrSchemaDrift) {
					t.Fatalf("expected ErrSchemaDrift, got %v", err)
				}
				if !shared.IsFatal(err) {
					t.Error("schema drift should be fatal")
				}
				if !strings.Contains(err.Error(), "/web/library/course/7") {
					t.Errorf("error should link the collection: %v", err)
				}
			})
		}
	})

	t.Run("repeated cursor is schema drift", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"next":"/api/v3/ja/collections/7/lessons/?page=2","results":[]}`)
		}))
		defer srv.Close()

		client, _ := newTestClient(t, srv.URL)
		_, err := client.FetchCollection(context.Background(), 7)
		if !errors.Is(err, shared.ErrSchemaDrift) {
			t.Fatalf("expected ErrSchemaDrift, got %v", err)
		}
	})

	t.Run("page failure after retries", func(t *testing.T) {
		srv, hits := scriptedServer(t, reply(http.StatusInternalServerError, ``))
		client, _ := newTestClient(t, srv.URL, func(o *ClientOpts) { o.MaxRetries = 2 })

		_, err := client.FetchCollection(context.Background(), 7)
		if !errors.Is(err, shared.ErrRetriesExhausted) {
			t.Fatalf("expected ErrRetriesExhausted, got %v", err)
		}
		if hits.Load() != 2 {
			t.Errorf("hits = %d, want 2", hits.Load())
		}
	})

	t.Run("rejects invalid id", func(t *testing.T) {
		client, _ := newTestClient(t, "http://lingq.invalid")
		if _, err := client.FetchCollection(context.Background(), 0); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestMovePosition(t *testing.T) {
	t.Run("patches position", func(t *testing.T) {
		var method, path, contentType string
		var payload map[string]int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method, path, contentType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("failed to decode body: %v", err)
			}
			fmt.Fprint(w, lessonJSON(42, 3, "A"))
		}))
		defer srv.Close()

		client, _ := newTestClient(t, srv.URL)
		if err := client.MovePosition(context.Background(), models.MoveOperation{ID: 42, TargetPosition: 3}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if method != http.MethodPatch || path != "/api/v3/ja/lessons/42/" || contentType != "application/json" {
			t.Errorf("got %s %s (%s)", method, path, contentType)
		}
		if payload["position"] != 3 || len(payload) != 1 {
			t.Errorf("payload = %v", payload)
		}
	})

	t.Run("lock retries resend the body", func(t *testing.T) {
		var bodies []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(data))
			if len(bodies) == 1 {
				locked(LockTokenizing)(w)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client, _ := newTestClient(t, srv.URL)
		if err := client.MovePosition(context.Background(), models.MoveOperation{ID: 1, TargetPosition: 2}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(bodies) != 2 || bodies[0] != bodies[1] || bodies[1] != `{"position":2}` {
			t.Errorf("bodies = %q", bodies)
		}
	})

	t.Run("not found links the lesson", func(t *testing.T) {
		srv, _ := scriptedServer(t, reply(http.StatusNotFound, `{"detail":"Not found."}`))
		client, _ := newTestClient(t, srv.URL)

		err := client.MovePosition(context.Background(), models.MoveOperation{ID: 5, TargetPosition: 1})
		if !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if !strings.Contains(err.Error(), client.LessonURL(5)) {
			t.Errorf("error should link the lesson: %v", err)
		}
	})

	t.Run("rejects invalid operation", func(t *testing.T) {
		client, _ := newTestClient(t, "http://lingq.invalid")
		for _, op := range []models.MoveOperation{{ID: 0, TargetPosition: 1}, {ID: 1, TargetPosition: 0}} {
			if err := client.MovePosition(context.Background(), op); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("MovePosition(%+v) = %v, want ErrInvalidArgument", op, err)
			}
		}
	})
}

func TestPostLesson(t *testing.T) {
	t.Run("uploads multipart lesson", func(t *testing.T) {
		var form map[string]string
		var audio string
		var audioName string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/v3/ja/lessons/import/" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm() error = %v", err)
				return
			}
			form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				form[k] = v[0]
			}
			file, header, err := r.FormFile("audio")
			if err != nil {
				t.Errorf("FormFile() error = %v", err)
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			audio, audioName = string(data), header.Filename

			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":99,"title":"Ch 1","position":4,"status":"private"}`)
		}))
		defer srv.Close()

		client, _ := newTestClient(t, srv.URL)
		item, err := client.PostLesson(context.Background(), 7, models.LessonUpload{
			Title:     "Ch 1",
			Text:      "本文",
			AudioName: "ch1.mp3",
			Audio:     []byte("ID3"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.ID != 99 || item.Position != 4 || item.CollectionID != 7 {
			t.Errorf("item = %+v", item)
		}
		if form["title"] != "Ch 1" || form["collection"] != "7" || form["text"] != "本文" || form["status"] != "private" {
			t.Errorf("form = %v", form)
		}
		if audio != "ID3" || audioName != "ch1.mp3" {
			t.Errorf("audio = %q (%s)", audio, audioName)
		}
	})

	t.Run("text only", func(t *testing.T) {
		var hasAudio bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseMultipartForm(1 << 20)
			_, hasAudio = r.MultipartForm.File["audio"]
			fmt.Fprint(w, `{"id":5}`)
		}))
		defer srv.Close()

		client, _ := newTestClient(t, srv.URL)
		item, err := client.PostLesson(context.Background(), 7, models.LessonUpload{Title: "Notes", Text: "x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hasAudio {
			t.Error("expected no audio part")
		}
		if item.Title != "Notes" {
			t.Errorf("Title = %q, want the uploaded title", item.Title)
		}
	})

	t.Run("missing id is schema drift", func(t *testing.T) {
		srv, _ := scriptedServer(t, reply(http.StatusCreated, `{"title":"x"}`))
		client, _ := newTestClient(t, srv.URL)

		_, err := client.PostLesson(context.Background(), 7, models.LessonUpload{Title: "x"})
		if !errors.Is(err, shared.ErrSchemaDrift) {
			t.Fatalf("expected ErrSchemaDrift, got %v", err)
		}
	})

	t.Run("validates arguments", func(t *testing.T) {
		client, _ := newTestClient(t, "http://lingq.invalid")
		if _, err := client.PostLesson(context.Background(), 0, models.LessonUpload{Title: "x"}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for collection, got %v", err)
		}
		if _, err := client.PostLesson(context.Background(), 7, models.LessonUpload{Title: " "}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for title, got %v", err)
		}
	})
}

func TestURLs(t *testing.T) {
	client, _ := newTestClient(t, "https://api.example.com/", func(o *ClientOpts) { o.WebURL = "https://www.lingq.com/" })

	if got, want := client.LessonURL(12), "https://www.lingq.com/learn/ja/web/reader/12"; got != want {
		t.Errorf("LessonURL() = %q, want %q", got, want)
	}
	if got, want := client.CollectionURL(3), "https://www.lingq.com/learn/ja/web/library/course/3"; got != want {
		t.Errorf("CollectionURL() = %q, want %q", got, want)
	}
	if got, want := client.resolve("api/v3/x"), "https://api.example.com/api/v3/x"; got != want {
		t.Errorf("resolve() = %q, want %q", got, want)
	}
	if got, want := client.resolve("https://other.test/a"), "https://other.test/a"; got != want {
		t.Errorf("resolve() = %q, want %q", got, want)
	}
}
