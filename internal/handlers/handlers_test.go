package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/markedit-studio/markedit/internal/config"
	"github.com/markedit-studio/markedit/internal/markup"
	"github.com/markedit-studio/markedit/internal/models"
	"github.com/markedit-studio/markedit/internal/providers"
	"github.com/markedit-studio/markedit/internal/request"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

// createSession uploads a 200x100 source image and returns the session id
func createSession(t *testing.T, mux http.Handler) string {
	t.Helper()
	body, contentType := multipartBody(t, "file", map[string][]byte{"photo.png": pngBytes(t, 200, 100)})
	req := httptest.NewRequest("POST", "/api/sessions", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var view models.SessionView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if view.Source == nil || view.Source.ImageWidth != 200 {
		t.Fatalf("Expected the uploaded source in the view, got %+v", view.Source)
	}
	return view.ID
}

func drawStroke(t *testing.T, mux http.Handler, id string) {
	t.Helper()
	rect := markup.Rect{Width: 100, Height: 50}
	do(t, mux, "PUT", "/api/sessions/"+id+"/marker", map[string]string{"color": "red"})
	for _, ev := range []markup.PointerEvent{
		{Type: markup.PointerDown, ClientX: 10, ClientY: 25, Rect: rect},
		{Type: markup.PointerMove, ClientX: 40, ClientY: 25, Rect: rect},
		{Type: markup.PointerUp, Rect: rect},
	} {
		if rr := do(t, mux, "POST", "/api/sessions/"+id+"/pointer", ev); rr.Code != http.StatusOK {
			t.Fatalf("Pointer event failed: %d %s", rr.Code, rr.Body.String())
		}
	}
}

func TestGenerateFlow(t *testing.T) {
	out := pngBytes(t, 20, 10)
	var got []request.Part
	editor := providers.EditorFunc(func(ctx context.Context, parts []request.Part) (*models.Result, error) {
		got = parts
		return &models.Result{
			Image:      &models.ImageItem{ID: "out", Filename: "generated.png", MIMEType: "image/png", ImageWidth: 20, ImageHeight: 10, Data: out},
			Commentary: "Removed the object.",
		}, nil
	})
	mux := New(editor, config.Default(), "").Routes()
	id := createSession(t, mux)
	drawStroke(t, mux, id)

	rr := do(t, mux, "POST", "/api/sessions/"+id+"/generate", map[string]any{"preset": "bg"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp generateResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != models.StatusSuccess || resp.Analysis != "Removed the object." || len(resp.History) != 1 {
		t.Errorf("Unexpected response: %+v", resp)
	}

	if len(got) != 3 {
		t.Fatalf("Expected source, overlay and text parts, got %d", len(got))
	}
	text := got[2].Text
	if !strings.Contains(text, "(Mode: Marking)") || !strings.Contains(text, "Clean up the background") {
		t.Errorf("Unexpected prompt: %s", text)
	}

	rr = do(t, mux, "GET", resp.OutputURL, nil)
	if rr.Code != http.StatusOK || !bytes.Equal(rr.Body.Bytes(), out) {
		t.Errorf("Expected output bytes, got %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "CHR_") {
		t.Errorf("Expected CHR_ download name, got %s", cd)
	}

	rr = do(t, mux, "GET", "/api/sessions/"+id+"/history/0", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected history image, got %d", rr.Code)
	}
	rr = do(t, mux, "GET", "/api/sessions/"+id+"/history/1", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing history entry, got %d", rr.Code)
	}

	rr = do(t, mux, "POST", "/api/sessions/"+id+"/reuse", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected reuse to succeed, got %d", rr.Code)
	}
	var view models.SessionView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if view.Source == nil || view.Source.ImageWidth != 20 || view.Output != nil || len(view.Strokes) != 0 {
		t.Errorf("Expected the output to become a fresh source, got %+v", view)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name           string
		editor         providers.Editor
		upload         bool
		body           any
		wantCode       int
		wantIncomplete bool
	}{
		{
			name:     "no provider",
			editor:   nil,
			upload:   true,
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name: "no source",
			editor: providers.EditorFunc(func(ctx context.Context, parts []request.Part) (*models.Result, error) {
				return nil, nil
			}),
			wantCode: http.StatusConflict,
		},
		{
			name: "text only",
			editor: providers.EditorFunc(func(ctx context.Context, parts []request.Part) (*models.Result, error) {
				return &models.Result{Commentary: "Sorry."}, providers.ErrIncomplete
			}),
			upload:         true,
			wantCode:       http.StatusUnprocessableEntity,
			wantIncomplete: true,
		},
		{
			name: "provider failure",
			editor: providers.EditorFunc(func(ctx context.Context, parts []request.Part) (*models.Result, error) {
				return nil, fmt.Errorf("upstream unavailable")
			}),
			upload:   true,
			wantCode: http.StatusBadGateway,
		},
		{
			name: "unknown preset",
			editor: providers.EditorFunc(func(ctx context.Context, parts []request.Part) (*models.Result, error) {
				return nil, nil
			}),
			upload:   true,
			body:     map[string]string{"preset": "cartoon"},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := New(tt.editor, config.Default(), "").Routes()
			var id string
			if tt.upload {
				id = createSession(t, mux)
			} else {
				rr := do(t, mux, "POST", "/api/sessions", nil)
				var view models.SessionView
				if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
					t.Fatal(err)
				}
				id = view.ID
			}

			rr := do(t, mux, "POST", "/api/sessions/"+id+"/generate", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantIncomplete {
				var resp generateResponse
				if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
					t.Fatal(err)
				}
				if !resp.Incomplete || resp.Error != "Process incomplete. Please refine your request." || resp.Status != models.StatusError {
					t.Errorf("Unexpected response: %+v", resp)
				}
			}
		})
	}
}

func TestUploadValidation(t *testing.T) {
	mux := New(nil, nil, "").Routes()

	body, contentType := multipartBody(t, "file", map[string][]byte{"fake.png": []byte("definitely not a png file")})
	req := httptest.NewRequest("POST", "/api/sessions", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415, got %d", rr.Code)
	}

	rr = do(t, mux, "GET", "/api/sessions", nil)
	var list []models.SessionView
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("Expected the failed session to be removed, got %d sessions", len(list))
	}
}

func TestReferences(t *testing.T) {
	mux := New(nil, nil, "").Routes()
	id := createSession(t, mux)

	body, contentType := multipartBody(t, "files", map[string][]byte{"style.png": pngBytes(t, 4, 4)})
	req := httptest.NewRequest("POST", "/api/sessions/"+id+"/references", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if rr := do(t, mux, "DELETE", "/api/sessions/"+id+"/references/3", nil); rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing reference, got %d", rr.Code)
	}
	if rr := do(t, mux, "DELETE", "/api/sessions/"+id+"/references/0", nil); rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}
}

func TestMarkerToggle(t *testing.T) {
	mux := New(nil, nil, "").Routes()
	id := createSession(t, mux)

	tests := []struct {
		color    string
		expected string
	}{
		{"red", "red"},
		{"red", ""},
		{"protect", "blue"},
		{"green", "green"},
	}
	for _, tt := range tests {
		rr := do(t, mux, "PUT", "/api/sessions/"+id+"/marker", map[string]string{"color": tt.color})
		var resp struct {
			Marker string `json:"marker"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Marker != tt.expected {
			t.Errorf("Selecting %s: expected %q, got %q", tt.color, tt.expected, resp.Marker)
		}
	}

	rr := do(t, mux, "PUT", "/api/sessions/"+id+"/marker", map[string]string{"color": "purple"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown color, got %d", rr.Code)
	}
}

func TestOverlayAndResetStrokes(t *testing.T) {
	mux := New(nil, nil, "").Routes()
	id := createSession(t, mux)
	drawStroke(t, mux, id)

	rr := do(t, mux, "GET", "/api/sessions/"+id+"/overlay.png", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	img, err := png.Decode(rr.Body)
	if err != nil {
		t.Fatalf("Failed to decode overlay: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("Expected overlay at display size 100x50, got %v", img.Bounds())
	}
	if _, _, _, a := img.At(25, 25).RGBA(); a == 0 {
		t.Error("Expected the stroke to be visible on the overlay")
	}

	if rr := do(t, mux, "DELETE", "/api/sessions/"+id+"/strokes", nil); rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	rr = do(t, mux, "GET", "/api/sessions/"+id, nil)
	var view models.SessionView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if len(view.Strokes) != 0 {
		t.Errorf("Expected strokes to be reset, got %d", len(view.Strokes))
	}
	if view.Marker != models.Modify {
		t.Errorf("Expected the marker to survive a stroke reset, got %s", view.Marker)
	}
}

func TestPointerStream(t *testing.T) {
	server := httptest.NewServer(New(nil, nil, "").Routes())
	defer server.Close()
	id := createSession(t, server.Config.Handler)
	do(t, server.Config.Handler, "PUT", "/api/sessions/"+id+"/marker", map[string]string{"color": "yellow"})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/" + id + "/pointer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}

	rect := markup.Rect{Width: 100, Height: 50}
	events := []markup.PointerEvent{
		{Type: markup.PointerDown, ClientX: 5, ClientY: 5, Rect: rect},
		{Type: markup.PointerMove, ClientX: 50, ClientY: 40, Rect: rect},
		{Type: "wiggle"},
	}
	var replies []pointerReply
	for _, ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			t.Fatal(err)
		}
		var reply pointerReply
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatal(err)
		}
		replies = append(replies, reply)
	}

	if !replies[0].Changed || replies[0].Strokes != 1 {
		t.Errorf("Unexpected reply to down: %+v", replies[0])
	}
	if !replies[1].PreventDefault {
		t.Error("Expected move during a drag to prevent default")
	}
	if replies[2].Error == "" {
		t.Error("Expected an error for an unknown event type")
	}
	conn.Close()
}

func TestSessionNotFound(t *testing.T) {
	mux := New(nil, nil, "").Routes()
	for _, path := range []string{"/api/sessions/nope", "/api/sessions/nope/output", "/api/sessions/nope/overlay.png"} {
		if rr := do(t, mux, "GET", path, nil); rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rr.Code)
		}
	}
}
