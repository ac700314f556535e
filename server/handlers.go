package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/poiesic/answerit"
	"github.com/poiesic/answerit/core"
)

// askRequest is the JSON request body. Image is base64 encoded, optionally
// as a data URL.
type askRequest struct {
	Question string  `json:"question"`
	Image    *string `json:"image"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	q, err := s.parseQuestion(r)
	if err != nil {
		s.logger.Debug("rejecting malformed request", "err", err)
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ans, err := s.ask(r.Context(), q)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyQuery):
			WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			WriteError(w, http.StatusServiceUnavailable, "request cancelled")
		default:
			s.logger.Error("failed to answer question", "err", err)
			WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusOK, ans)
}

// ask answers q on the worker pool.
func (s *Server) ask(ctx context.Context, q answerit.Question) (*core.Answer, error) {
	type outcome struct {
		ans *core.Answer
		err error
	}
	done := make(chan outcome, 1)

	err := s.pool.Submit(func() {
		ans, err := s.asker.Ask(ctx, q)
		done <- outcome{ans, err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case out := <-done:
		return out.ans, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) parseQuestion(r *http.Request) (answerit.Question, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return s.parseMultipart(r)
	case "application/x-www-form-urlencoded":
		return s.parseForm(r)
	}
	return s.parseJSON(r)
}

// parseForm reads a url-encoded form, which carries no image.
func (s *Server) parseForm(r *http.Request) (answerit.Question, error) {
	if err := r.ParseForm(); err != nil {
		return answerit.Question{}, errors.New("invalid form body")
	}
	return answerit.Question{Text: r.PostFormValue("question")}, nil
}

func (s *Server) parseJSON(r *http.Request) (answerit.Question, error) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return answerit.Question{}, errors.New("invalid JSON body")
	}

	q := answerit.Question{Text: req.Question}
	if req.Image != nil && *req.Image != "" {
		image, err := answerit.DecodeImage(*req.Image)
		if err != nil {
			s.logger.Warn("ignoring undecodable image", "err", err)
		} else {
			q.Image = image
		}
	}
	return q, nil
}

func (s *Server) parseMultipart(r *http.Request) (answerit.Question, error) {
	if err := r.ParseMultipartForm(s.maxBodyBytes); err != nil {
		return answerit.Question{}, errors.New("invalid multipart body")
	}

	q := answerit.Question{Text: r.FormValue("question")}

	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		s.logger.Warn("ignoring unreadable image upload", "err", err)
	default:
		defer file.Close()
		image, err := io.ReadAll(file)
		if err != nil {
			s.logger.Warn("ignoring unreadable image upload", "err", err)
		} else {
			q.Image = image
		}
	}
	return q, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  s.asker.Stats(),
	})
}
