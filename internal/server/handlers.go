package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/catherio/gym-http-api/internal/api"
	"github.com/catherio/gym-http-api/internal/envs"
	"github.com/catherio/gym-http-api/internal/monitor"
	"github.com/catherio/gym-http-api/internal/observability"
	"github.com/catherio/gym-http-api/internal/registry"
	"github.com/catherio/gym-http-api/internal/spaces"
	"github.com/catherio/gym-http-api/internal/upload"
)

// ErrOpenMonitors rejects an upload while an instance is still recording into
// the training directory.
var ErrOpenMonitors = errors.New("server: training directory has open monitor sessions")

func (s *Server) handleEnvCreate(c *gin.Context) {
	var req api.CreateEnvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "malformed request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.EnvID) == "" {
		writeBadRequest(c, "env_id is required")
		return
	}

	inst, err := s.registry.Create(req.EnvID)
	if err != nil {
		writeError(c, err)
		return
	}
	observability.RecordInstanceCreated(req.EnvID)
	log.Info().
		Str("instance_id", inst.ID()).
		Str("env_id", req.EnvID).
		Msg("environment instance created")
	c.JSON(http.StatusOK, api.CreateEnvResponse{InstanceID: inst.ID()})
}

func (s *Server) handleEnvList(c *gin.Context) {
	c.JSON(http.StatusOK, api.ListEnvsResponse{AllEnvs: s.registry.List()})
}

func (s *Server) handleEnvExists(c *gin.Context) {
	exists := s.registry.Exists(c.Param("instance_id"))
	c.JSON(http.StatusOK, api.ExistsResponse{Exists: exists})
}

func (s *Server) handleEnvReset(c *gin.Context) {
	inst, err := s.registry.Get(c.Param("instance_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	obs, err := inst.Reset()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ResetResponse{Observation: obs})
}

func (s *Server) handleEnvStep(c *gin.Context) {
	inst, err := s.registry.Get(c.Param("instance_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req api.StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "malformed request body: "+err.Error())
		return
	}
	if len(req.Action) == 0 {
		writeBadRequest(c, "action is required")
		return
	}

	action, err := spaces.DecodeAction(inst.ActionSpace(), req.Action)
	if err != nil {
		writeError(c, err)
		return
	}

	start := time.Now()
	res, err := inst.Step(action)
	if err != nil {
		writeError(c, err)
		return
	}
	observability.RecordEnvStep(inst.EnvID(), time.Since(start))

	info := res.Info
	if info == nil {
		info = map[string]any{}
	}
	c.JSON(http.StatusOK, api.StepResponse{
		Observation: res.Observation,
		Reward:      res.Reward,
		Done:        res.Done,
		Info:        info,
	})
}

func (s *Server) handleActionSpace(c *gin.Context) {
	inst, err := s.registry.Get(c.Param("instance_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	desc, err := spaces.Describe(inst.ActionSpace())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.SpaceResponse{Info: desc})
}

func (s *Server) handleObservationSpace(c *gin.Context) {
	inst, err := s.registry.Get(c.Param("instance_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	desc, err := spaces.Describe(inst.ObservationSpace())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.SpaceResponse{Info: desc})
}

func (s *Server) handleMonitorStart(c *gin.Context) {
	inst, err := s.registry.Get(c.Param("instance_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req api.MonitorStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "malformed request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Directory) == "" {
		writeBadRequest(c, "directory is required")
		return
	}

	if err := inst.StartMonitor(req.Directory, req.Force, req.Resume); err != nil {
		writeError(c, err)
		return
	}
	log.Info().
		Str("instance_id", inst.ID()).
		Str("directory", req.Directory).
		Msg("monitor started")
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMonitorClose(c *gin.Context) {
	inst, err := s.registry.Get(c.Param("instance_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := inst.CloseMonitor(); err != nil {
		writeError(c, err)
		return
	}
	log.Info().Str("instance_id", inst.ID()).Msg("monitor closed")
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUpload(c *gin.Context) {
	var req api.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "malformed request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.TrainingDir) == "" {
		writeBadRequest(c, "training_dir is required")
		return
	}

	if !req.IgnoreOpenMonitors && s.registry.RecordingInto(req.TrainingDir) {
		writeError(c, fmt.Errorf("%w: %q", ErrOpenMonitors, req.TrainingDir))
		return
	}

	err := s.uploader.Upload(c.Request.Context(), upload.Request{
		TrainingDir: req.TrainingDir,
		APIKey:      req.APIKey,
		AlgorithmID: req.AlgorithmID,
		Writeup:     req.Writeup,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleShutdown(c *gin.Context) {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
	})
	c.Status(http.StatusNoContent)
}

// writeError maps domain sentinels onto wire statuses. Anything unrecognized,
// including an unsupported space variant, is an internal fault.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrInstanceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, envs.ErrUnknownEnvironment),
		errors.Is(err, spaces.ErrInvalidAction),
		errors.Is(err, monitor.ErrConflictingFlags),
		errors.Is(err, monitor.ErrAlreadyRecording),
		errors.Is(err, upload.ErrMissingAPIKey),
		errors.Is(err, upload.ErrNoRecordings),
		errors.Is(err, ErrOpenMonitors):
		status = http.StatusBadRequest
	case errors.Is(err, upload.ErrUploadRejected):
		status = http.StatusBadGateway
	}
	c.JSON(status, api.ErrorResponse{Message: err.Error()})
}

func writeBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: msg})
}
