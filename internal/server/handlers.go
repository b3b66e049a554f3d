package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/talksphere/server/internal/assistant/model"
	"github.com/talksphere/server/internal/assistant/tools"
	errx "github.com/talksphere/server/internal/core/error"
	logx "github.com/talksphere/server/pkg/logger"
)

const (
	formPrompt = "prompt"
	formFiles  = "files"
)

type userResponse struct {
	Message string      `json:"message,omitempty"`
	User    *model.User `json:"user"`
}

type successResponse struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	Response string      `json:"response,omitempty"`
	User     *model.User `json:"user,omitempty"`
}

// ================ Auth ================

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in model.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, token, err := s.auth.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.setSessionCookie(w, token.Value)
	writeJSON(w, r, http.StatusCreated, userResponse{Message: "User created", User: user})
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var in model.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, token, err := s.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.setSessionCookie(w, token.Value)
	writeJSON(w, r, http.StatusOK, userResponse{Message: "Logged in", User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), s.tokenFrom(r)); err != nil {
		// The cookie is cleared regardless; the token just stays valid until expiry.
		logx.FromRequest(r).Warn().Err(err).Msg("failed to revoke token")
	}
	s.clearSessionCookie(w)
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Logged out"})
}

// ================ Profile ================

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	user, err := s.profile.Current(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, userResponse{User: user})
}

func (s *Server) handleSetAssistant(w http.ResponseWriter, r *http.Request) {
	var in model.AssistantProfile
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.profile.SetAssistant(r.Context(), userID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, successResponse{Success: true, Message: "Assistant updated successfully", User: user})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.profile.History(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "history": history})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.profile.ClearHistory(r.Context(), userID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, successResponse{Success: true, Message: "History cleared"})
}

// ================ Chat ================

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var in model.ChatInput
	// an empty body is a chat without a prompt
	if err := decodeJSON(w, r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, err)
		return
	}
	in.UserID = userID(r.Context())

	res, err := s.chat.Chat(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, successResponse{Success: true, Response: res.Response})
}

func (s *Server) handleChatWithFile(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Server.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, errx.New(err, http.StatusRequestEntityTooLarge, "file is too large"))
			return
		}
		writeError(w, r, errx.New(err, http.StatusBadRequest, "invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := model.FileChatInput{
		UserID: userID(r.Context()),
		Prompt: r.FormValue(formPrompt),
	}
	image, err := firstUpload(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in.Image = image

	res, err := s.chat.ChatWithFile(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, successResponse{Success: true, Response: res.Response})
}

// firstUpload reads the first file of the "files" field, if any.
func firstUpload(r *http.Request) (*model.ImageInput, error) {
	headers := r.MultipartForm.File[formFiles]
	if len(headers) == 0 {
		return nil, nil
	}
	f, err := headers[0].Open()
	if err != nil {
		return nil, errx.New(err, http.StatusBadRequest, "could not read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errx.New(err, http.StatusBadRequest, "could not read uploaded file")
	}
	// Browsers often send application/octet-stream; leave those for sniffing.
	mime := headers[0].Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = ""
	}
	return &model.ImageInput{Data: data, MIMEType: mime}, nil
}

// ================ Tools ================

func (s *Server) handleTool(t tools.Tool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, successResponse{Success: true, Response: s.tools.Answer(t)})
	}
}

func (s *Server) handleUploadDrive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, successResponse{Success: true, Message: "Successfully initiated Google Drive upload (mock)."})
}
