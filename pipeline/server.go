package pipeline

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/deckgen/idgen"
	"github.com/hazyhaar/deckgen/kit"
)

// Router builds the HTTP front-end: deck generation from an uploaded
// template, plus a health probe.
func (p *Pipeline) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(p.requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if p.cfg.Serve.AuthHash != "" {
			r.Use(p.basicAuth)
		}
		r.Post("/v1/decks", p.handleGenerate)
	})
	return r
}

// Serve runs the HTTP server until the listener fails.
func (p *Pipeline) Serve() error {
	addr := p.cfg.Serve.Addr
	p.logger.Info("http serving", "addr", addr)
	return http.ListenAndServe(addr, p.Router())
}

// requestID assigns every request a UUID, honoring a well-formed client
// supplied X-Request-Id, and echoes the effective one in the response.
func (p *Pipeline) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := idgen.Parse(r.Header.Get("X-Request-Id"))
		if err != nil {
			id = idgen.New()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := kit.WithRequestID(r.Context(), id)
		ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// basicAuth verifies credentials against the configured bcrypt hash. The
// username comparison is constant time; bcrypt handles the password.
func (p *Pipeline) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(p.cfg.Serve.AuthUser)) != 1 ||
			bcrypt.CompareHashAndPassword([]byte(p.cfg.Serve.AuthHash), []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="deckgen"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(kit.WithUserID(r.Context(), user)))
	})
}

// handleGenerate accepts a multipart template upload under the "template"
// field and runs a full generation. The finished pptx comes back as the
// response body; when the run stops at HTML (browser disabled) the manifest
// JSON is returned instead.
func (p *Pipeline) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if max := p.cfg.maxUploadBytes(); max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max)
	}

	file, header, err := r.FormFile("template")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing template upload")
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".md"
	}
	tmp, err := os.CreateTemp("", "deckgen-upload-*"+ext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "spool upload")
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}
	tmp.Close()

	res, err := p.Run(r.Context(), tmp.Name())
	if err != nil {
		p.logger.Error("generation failed", "error", err,
			"request_id", kit.GetRequestID(r.Context()))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if res.PptxPath == "" {
		writeJSON(w, http.StatusOK, res)
		return
	}
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s.pptx"`, res.RunID))
	w.Header().Set("X-Run-Id", res.RunID)
	http.ServeFile(w, r, res.PptxPath)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
