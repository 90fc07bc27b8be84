package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/itboard/backend/internal/job"
	"github.com/itchan-dev/itboard/backend/internal/service"
	"github.com/itchan-dev/itboard/shared/domain"
	internal_errors "github.com/itchan-dev/itboard/shared/errors"
	"github.com/itchan-dev/itboard/shared/logger"
	"github.com/itchan-dev/itboard/shared/utils"
)

func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	client, err := clientInfo(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	var form service.ThreadForm
	if err := utils.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), &form); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	id, err := h.submission.CreateThread(r.Context(), chi.URLParam(r, "board"), form, client)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.Header().Set("Location", taskPath(id))
	utils.WriteJSONStatus(w, http.StatusAccepted, newTaskResponse(id, job.StatusQueued))
}

func (h *Handler) CreateReply(w http.ResponseWriter, r *http.Request) {
	threadId, err := parseIdParam(chi.URLParam(r, "thread"), "thread")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	client, err := clientInfo(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	var form service.ReplyForm
	if err := utils.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), &form); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	id, err := h.submission.CreateReply(r.Context(), chi.URLParam(r, "board"), threadId, form, client)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.Header().Set("Location", taskPath(id))
	utils.WriteJSONStatus(w, http.StatusAccepted, newTaskResponse(id, job.StatusQueued))
}

// GetTask reports the job state. Queued and pending jobs are 200 without
// data; the client polls again. Failed jobs render as the rejection error.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task")
	proxy, err := h.submission.Poll(r.Context(), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	resp := newTaskResponse(proxy.Id(), proxy.Status())
	obj, err := proxy.Object(r.Context())
	switch {
	case errors.Is(err, job.ErrNotReady):
		w.Header().Set("Retry-After", "1")
		utils.WriteJSON(w, resp)
		return
	case errors.Is(err, job.ErrMalformedResult):
		logger.Log.Error("stored job result is malformed", "component", "handler", "job_id", id, "error", err)
		utils.WriteErrorAndStatusCode(w, err)
		return
	case err != nil:
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	switch obj := obj.(type) {
	case domain.Thread:
		resp.Data = newThreadResponse(obj)
	case domain.Reply:
		resp.Data = h.newReplyResponse(obj)
	}
	utils.WriteJSON(w, resp)
}

func clientInfo(r *http.Request) (domain.ClientInfo, error) {
	ip, err := utils.GetIP(r)
	if err != nil {
		return domain.ClientInfo{}, err
	}
	return domain.ClientInfo{
		IpAddress: ip,
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}, nil
}

func parseIdParam(value, name string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, &internal_errors.ErrorWithStatusCode{
			Message:    fmt.Sprintf("invalid %s id: %q", name, value),
			StatusCode: http.StatusBadRequest,
		}
	}
	return id, nil
}
