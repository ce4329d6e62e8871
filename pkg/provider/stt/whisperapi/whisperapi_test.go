package whisperapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cmelnyk/pharmaline/internal/resilience"
	"github.com/cmelnyk/pharmaline/pkg/provider/stt"
)

// TestNew_RequiresAPIKey checks constructor validation.
func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty apiKey")
	}
}

// TestTranscribe_Success checks the multipart upload and verbose JSON decode
// against a fake server.
func TestTranscribe_Success(t *testing.T) {
	var gotAuth, gotModel, gotFormat, gotFilename string
	var gotAudio []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			gotFilename = header.Filename
			gotAudio, _ = io.ReadAll(file)
			file.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"  What is the dosage?  ","language":"english","duration":1.4}`)
	}))
	defer srv.Close()

	p, err := New("sk-test", WithBaseURL(srv.URL), WithModel("whisper-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := p.Transcribe(context.Background(), stt.Request{
		Audio:    strings.NewReader("RIFFfake"),
		Filename: "call-1234.wav",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Text != "  What is the dosage?  " {
		t.Errorf("text = %q, want the service text verbatim", res.Text)
	}
	if res.Language != "english" {
		t.Errorf("language = %q, want \"english\"", res.Language)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("authorization = %q, want bearer key", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model field = %q, want \"whisper-1\"", gotModel)
	}
	if gotFormat != "verbose_json" {
		t.Errorf("response_format = %q, want \"verbose_json\"", gotFormat)
	}
	if gotFilename != "call-1234.wav" {
		t.Errorf("filename = %q, want the caller's filename", gotFilename)
	}
	if string(gotAudio) != "RIFFfake" {
		t.Errorf("audio payload = %q, want the uploaded bytes", gotAudio)
	}
}

// TestTranscribe_LanguageHint checks that a hint is forwarded and omitted
// when empty.
func TestTranscribe_LanguageHint(t *testing.T) {
	var hint string
	var hintPresent bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		hint = r.FormValue("language")
		_, hintPresent = r.MultipartForm.Value["language"]
		io.WriteString(w, `{"text":"ok","language":"kazakh"}`)
	}))
	defer srv.Close()

	p, _ := New("sk-test", WithBaseURL(srv.URL))

	if _, err := p.Transcribe(context.Background(), stt.Request{Audio: strings.NewReader("x"), LanguageHint: "kk"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hint != "kk" {
		t.Errorf("language hint = %q, want \"kk\"", hint)
	}

	if _, err := p.Transcribe(context.Background(), stt.Request{Audio: strings.NewReader("x")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hintPresent {
		t.Error("language field should be absent when no hint is given")
	}
}

// TestTranscribe_ServerError checks that non-200 responses carry their HTTP
// status for retry classification.
func TestTranscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, _ := New("sk-test", WithBaseURL(srv.URL))
	_, err := p.Transcribe(context.Background(), stt.Request{Audio: strings.NewReader("x")})
	if err == nil {
		t.Fatal("expected error")
	}

	var se *resilience.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *resilience.StatusError", err)
	}
	if se.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", se.Status)
	}
	if !resilience.Transient(err) {
		t.Error("a 503 must classify as transient")
	}
}

// TestTranscribe_BadJSON checks that a malformed body is a terminal failure.
func TestTranscribe_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	p, _ := New("sk-test", WithBaseURL(srv.URL))
	_, err := p.Transcribe(context.Background(), stt.Request{Audio: strings.NewReader("x")})
	if err == nil {
		t.Fatal("expected error")
	}
	if resilience.Transient(err) {
		t.Error("a malformed response must classify as terminal")
	}
}
