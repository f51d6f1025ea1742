package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/model"
	"github.com/sells-group/territory-cli/internal/store"
	"github.com/sells-group/territory-cli/internal/territory"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.catalog.All())
}

func (s *Server) handleListDealers(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")
	if !s.catalog.Has(region) {
		s.respondError(w, http.StatusNotFound, "unknown region "+region)
		return
	}

	dealers, err := s.store.Dealers(r.Context(), region)
	if err != nil {
		s.log.Error("list dealers", zap.String("region", region), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to load dealers")
		return
	}
	if dealers == nil {
		dealers = []model.Dealer{}
	}
	s.respondJSON(w, http.StatusOK, dealers)
}

type assignRequest struct {
	RepID string `json:"repId"`
}

func (s *Server) handleAssignDealer(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")
	placeID := chi.URLParam(r, "placeID")

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RepID == "" {
		s.respondError(w, http.StatusBadRequest, "repId is required")
		return
	}

	if _, err := s.store.GetRep(r.Context(), req.RepID); err != nil {
		s.respondError(w, http.StatusNotFound, "unknown rep "+req.RepID)
		return
	}

	if err := s.store.AssignDealer(r.Context(), region, placeID, req.RepID); err != nil {
		s.respondError(w, http.StatusNotFound, "unknown dealer "+placeID)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (s *Server) handleUnassignDealer(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")
	placeID := chi.URLParam(r, "placeID")

	if err := s.store.UnassignDealer(r.Context(), region, placeID); err != nil {
		s.respondError(w, http.StatusNotFound, "unknown dealer "+placeID)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "available"})
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")
	if !s.catalog.Has(region) {
		s.respondError(w, http.StatusNotFound, "unknown region "+region)
		return
	}
	if s.scanner.Scanning(region) {
		s.respondError(w, http.StatusConflict, "scan already in progress for "+region)
		return
	}

	s.tracker.started(region)
	go func() {
		// Detached from the request context: the scan outlives the POST.
		if _, err := s.scanner.Scan(context.Background(), region); err != nil {
			s.log.Error("scan failed", zap.String("region", region), zap.Error(err))
			s.tracker.failed(region, err)
		}
	}()

	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "started", "region": region})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")
	if !s.catalog.Has(region) {
		s.respondError(w, http.StatusNotFound, "unknown region "+region)
		return
	}

	status, ok := s.tracker.status(region)
	if !ok {
		status = ScanStatus{Region: region}
	}
	status.Running = s.scanner.Scanning(region)
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")
	if !s.scanner.Scanning(region) {
		s.respondError(w, http.StatusNotFound, "no scan in progress for "+region)
		return
	}
	s.scanner.Cancel(region)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *Server) handleListReps(w http.ResponseWriter, r *http.Request) {
	reps, err := s.store.Reps(r.Context())
	if err != nil {
		s.log.Error("list reps", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to load reps")
		return
	}
	if reps == nil {
		reps = []model.Rep{}
	}
	s.respondJSON(w, http.StatusOK, reps)
}

func (s *Server) handleGetRep(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.GetRep(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "unknown rep")
		return
	}
	s.respondJSON(w, http.StatusOK, rep)
}

func (s *Server) handleSaveRep(w http.ResponseWriter, r *http.Request) {
	var rep model.Rep
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid rep payload")
		return
	}
	if rep.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if id := chi.URLParam(r, "id"); id != "" {
		rep.ID = id
	}

	created := rep.ID == ""
	if created {
		reps, err := s.store.Reps(r.Context())
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to load reps")
			return
		}
		rep.ID = uuid.NewString()
		rep.CreatedAt = time.Now().UTC()
		if rep.Color == "" {
			rep.Color = territory.NextColor(len(reps))
		}
	}

	if err := s.store.SaveRep(r.Context(), rep); err != nil {
		s.log.Error("save rep", zap.String("id", rep.ID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to save rep")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, rep)
}

func (s *Server) handleDeleteRep(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRep(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, http.StatusNotFound, "unknown rep")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.store.Clients(r.Context())
	if err != nil {
		s.log.Error("list clients", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to load clients")
		return
	}
	if clients == nil {
		clients = []model.Client{}
	}
	s.respondJSON(w, http.StatusOK, clients)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, http.StatusNotFound, "unknown client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := store.Export(r.Context(), s.store)
	if err != nil {
		s.log.Error("export backup", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to export backup")
		return
	}
	s.respondJSON(w, http.StatusOK, backup)
}

func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	var backup store.Backup
	if err := json.NewDecoder(r.Body).Decode(&backup); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid backup payload")
		return
	}
	if err := store.Import(r.Context(), s.store, &backup); err != nil {
		s.log.Error("import backup", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to import backup")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

