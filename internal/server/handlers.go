package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thywilljoshua/scholar-refine/internal/ai"
	"github.com/thywilljoshua/scholar-refine/internal/intake"
	"github.com/thywilljoshua/scholar-refine/internal/session"
)

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", newPageData(currentSession(c).Snapshot()))
}

func (s *Server) handleFilesPartial(c *gin.Context) {
	c.HTML(http.StatusOK, "files", newPageData(currentSession(c).Snapshot()))
}

func (s *Server) handleResultPartial(c *gin.Context) {
	c.HTML(http.StatusOK, "result", newPageData(currentSession(c).Snapshot()))
}

func (s *Server) handleSession(c *gin.Context) {
	respond(c, http.StatusOK, newPageData(currentSession(c).Snapshot()))
}

// handleUpload accepts both the drop zone and the file picker; each posts
// its files as multipart parts named "files".
func (s *Server) handleUpload(c *gin.Context) {
	sess := currentSession(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, ErrorUploadTooLarge, "upload exceeds the size limit")
			return
		}
		respondError(c, http.StatusBadRequest, ErrorBadRequest, "expected a multipart form with files")
		return
	}
	defer form.RemoveAll()

	var docs []intake.Document
	for _, fh := range form.File["files"] {
		d, err := intake.FromMultipart(sess.Dir(), fh)
		if err != nil {
			s.log.Error("upload failed", "session", sess.ID(), "file", fh.Filename, "error", err)
			intake.Discard(sess.Dir(), docs)
			respondError(c, http.StatusInternalServerError, ErrorFileUploadFailed, "could not store "+fh.Filename)
			return
		}
		docs = append(docs, d)
	}

	accepted, rejected := sess.AddFiles(docs...)
	for _, r := range rejected {
		s.log.Info("upload rejected", "session", sess.ID(), "file", r.Name, "media_type", r.MediaType)
	}

	data := newPageData(sess.Snapshot())
	data.Rejected = rejected
	respond(c, http.StatusOK, gin.H{
		"accepted": len(accepted),
		"rejected": rejected,
		"session":  data,
	})
}

func (s *Server) handleRemoveFile(c *gin.Context) {
	sess := currentSession(c)
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrorBadRequest, "file index must be a number")
		return
	}
	if err := sess.RemoveFile(i); err != nil {
		if errors.Is(err, intake.ErrIndexOutOfRange) {
			respondError(c, http.StatusNotFound, ErrorFileNotFound, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, ErrorBadRequest, err.Error())
		return
	}
	respond(c, http.StatusOK, newPageData(sess.Snapshot()))
}

type refineRequest struct {
	Sentence    string `json:"sentence" form:"sentence"`
	Instruction string `json:"instruction" form:"instruction"`
}

// handleRefine starts the request in the background and answers 202; the
// page follows progress over /ws or /api/session.
func (s *Server) handleRefine(c *gin.Context) {
	sess := currentSession(c)
	var req refineRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrorBadRequest, "invalid refine request")
		return
	}

	job, err := sess.Begin(req.Sentence, req.Instruction)
	switch {
	case errors.Is(err, session.ErrBusy):
		respondError(c, http.StatusConflict, ErrorSessionBusy, err.Error())
		return
	case errors.Is(err, session.ErrNoDocuments):
		respondError(c, http.StatusBadRequest, ErrorNoDocuments, err.Error())
		return
	case errors.Is(err, session.ErrBlankSentence):
		respondError(c, http.StatusBadRequest, ErrorBlankSentence, err.Error())
		return
	case err != nil:
		respondError(c, http.StatusInternalServerError, ErrorBadRequest, err.Error())
		return
	}

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		log := s.log.With("session", sess.ID())
		if err := job.Run(s.refiner); err != nil {
			log.Warn("refinement failed", "kind", ai.KindOf(err), "error", err)
			return
		}
		log.Info("refinement complete")
	}()

	respond(c, http.StatusAccepted, newPageData(sess.Snapshot()))
}

func (s *Server) handleReset(c *gin.Context) {
	sess := currentSession(c)
	sess.Reset()
	respond(c, http.StatusOK, newPageData(sess.Snapshot()))
}
