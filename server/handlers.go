package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"grant_assistant/document"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"generating": s.orch.Status().Generating,
	})
}

// Application handlers

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app := s.store.Application()
	if app == nil {
		s.respondErr(w, r, document.ErrNoActiveDocument)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

// handlePutApplication replaces the whole application. Missing identifiers
// are assigned and every question gets a current version.
func (s *Server) handlePutApplication(w http.ResponseWriter, r *http.Request) {
	var app document.Application
	if !decode(w, r, &app) {
		return
	}
	respondJSON(w, http.StatusOK, s.store.SetApplication(app))
}

// Question handlers

type contentReq struct {
	Content string `json:"content"`
}

type versionReq struct {
	Content string          `json:"content"`
	Source  document.Source `json:"source"`
	ModelID string          `json:"model_id"`
}

type currentVersionReq struct {
	VersionID string `json:"version_id"`
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	s.respondQuestion(w, r, http.StatusOK, s.store.Application(), mux.Vars(r)["id"])
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	var req contentReq
	if !decode(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]
	app, err := s.store.UpdateQuestionContent(id, req.Content)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondQuestion(w, r, http.StatusOK, app, id)
}

func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	var req versionReq
	if !decode(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]
	app, err := s.store.CreateQuestionVersion(id, req.Content, req.Source, req.ModelID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondQuestion(w, r, http.StatusCreated, app, id)
}

func (s *Server) handleSetCurrentVersion(w http.ResponseWriter, r *http.Request) {
	var req currentVersionReq
	if !decode(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]
	app, err := s.store.SetCurrentVersion(id, req.VersionID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondQuestion(w, r, http.StatusOK, app, id)
}

func (s *Server) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	v, err := s.orch.GenerateQuestionContent(ctx, mux.Vars(r)["id"])
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

func (s *Server) respondQuestion(w http.ResponseWriter, r *http.Request, status int, app *document.Application, id string) {
	if app == nil {
		s.respondErr(w, r, document.ErrNoActiveDocument)
		return
	}
	q, ok := app.Question(id)
	if !ok {
		s.respondErr(w, r, &document.NotFoundError{Kind: "question", ID: id})
		return
	}
	respondJSON(w, status, q)
}

// Logframe handlers

type goalReq struct {
	Goal string `json:"goal"`
}

func (s *Server) handleGetLogframe(w http.ResponseWriter, r *http.Request) {
	app := s.store.Application()
	if app == nil {
		s.respondErr(w, r, document.ErrNoActiveDocument)
		return
	}
	respondJSON(w, http.StatusOK, app.Logframe)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalReq
	if !decode(w, r, &req) {
		return
	}
	app, err := s.store.UpdateLogframeGoal(req.Goal)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, app.Logframe)
}

func (s *Server) handleGenerateGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	goal, err := s.orch.GenerateGoal(ctx)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, goalReq{Goal: goal})
}

// elementRoutes mounts create, patch, delete and generate for one kind of
// logframe element. Mutations answer with the whole logframe.
func elementRoutes[T, P any](
	s *Server,
	router *mux.Router,
	base string,
	add func(T) (*document.Application, error),
	update func(string, P) (*document.Application, error),
	remove func(string) (*document.Application, error),
	generate func(context.Context) (T, error),
) {
	router.HandleFunc(base+"/generate", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		item, err := generate(ctx)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, item)
	}).Methods(http.MethodPost)

	router.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		var item T
		if !decode(w, r, &item) {
			return
		}
		app, err := add(item)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, app.Logframe)
	}).Methods(http.MethodPost)

	router.HandleFunc(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch P
		if !decode(w, r, &patch) {
			return
		}
		app, err := update(mux.Vars(r)["id"], patch)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, app.Logframe)
	}).Methods(http.MethodPatch)

	router.HandleFunc(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		app, err := remove(mux.Vars(r)["id"])
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, app.Logframe)
	}).Methods(http.MethodDelete)
}

// Evaluation handlers

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.EvaluationResults())
}

func (s *Server) handleAddEvaluation(w http.ResponseWriter, r *http.Request) {
	var res document.EvaluationResult
	if !decode(w, r, &res) {
		return
	}
	respondJSON(w, http.StatusCreated, s.store.AddEvaluationResult(res))
}

// Model handlers

type preferenceReq struct {
	ModelID string `json:"model_id"`
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.models.Models())
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.models.Preferences())
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceReq
	if !decode(w, r, &req) {
		return
	}
	if err := s.models.SetPreference(mux.Vars(r)["context"], req.ModelID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.models.Preferences())
}

func (s *Server) handleGenerationStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.orch.Status())
}
