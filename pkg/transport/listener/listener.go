// Package listener routes incoming edit-request events to the service.
package listener

import (
	"context"
	"encoding/json"

	"github.com/formloom/formloom/internal/entity"
	"github.com/formloom/formloom/internal/service"
	"github.com/formloom/formloom/pkg/config"
	"github.com/formloom/formloom/pkg/logger"
	"go.uber.org/zap"
)

type (
	addBlockRequest struct {
		FormID   string `json:"form_id"`
		Type     string `json:"type"`
		Position int    `json:"position"`
	}

	updateBlockRequest struct {
		FormID  string         `json:"form_id"`
		BlockID string         `json:"block_id"`
		Patch   map[string]any `json:"patch"`
	}

	deleteBlockRequest struct {
		FormID  string `json:"form_id"`
		BlockID string `json:"block_id"`
	}

	moveBlockRequest struct {
		FormID string `json:"form_id"`
		From   int    `json:"from"`
		To     int    `json:"to"`
	}

	submitRequest struct {
		FormID  string           `json:"form_id"`
		Answers entity.AnswerSet `json:"answers"`
		IP      string           `json:"ip"`
	}

	deleteFormRequest struct {
		FormID string `json:"form_id"`
	}

	Listener struct {
		inputChan chan entity.Event
		logger    *logger.Logger
		service   *service.Service
		cfg       *config.Config
	}
)

func Init(
	inputChan chan entity.Event,
	logger *logger.Logger,
	cfg *config.Config,
	service *service.Service,
) *Listener {
	return &Listener{
		inputChan: inputChan,
		service:   service,
		logger:    logger,
		cfg:       cfg,
	}
}

// Listen dispatches events until ctx is done. A malformed payload or a
// failed operation is logged and the loop continues.
func (list *Listener) Listen(ctx context.Context) {
	for {
		select {
		case event := <-list.inputChan:
			list.dispatch(event)

		case <-ctx.Done():
			list.logger.Info("stopping listener...")
			return
		}
	}
}

func (list *Listener) dispatch(event entity.Event) {
	var err error

	switch event.Type {
	case list.cfg.Reqs.AddBlockRequestType:
		var req addBlockRequest
		if err = json.Unmarshal(event.Payload, &req); err == nil {
			err = list.service.AddBlock(req.FormID, entity.BlockType(req.Type), req.Position)
		}

	case list.cfg.Reqs.UpdateBlockRequestType:
		var req updateBlockRequest
		if err = json.Unmarshal(event.Payload, &req); err == nil {
			err = list.service.UpdateBlock(req.FormID, req.BlockID, req.Patch)
		}

	case list.cfg.Reqs.DeleteBlockRequestType:
		var req deleteBlockRequest
		if err = json.Unmarshal(event.Payload, &req); err == nil {
			err = list.service.DeleteBlock(req.FormID, req.BlockID)
		}

	case list.cfg.Reqs.MoveBlockRequestType:
		var req moveBlockRequest
		if err = json.Unmarshal(event.Payload, &req); err == nil {
			err = list.service.MoveBlock(req.FormID, req.From, req.To)
		}

	case list.cfg.Reqs.SubmitRequestType:
		var req submitRequest
		if err = json.Unmarshal(event.Payload, &req); err == nil {
			_, err = list.service.SubmitAnswers(req.FormID, req.Answers, service.SubmissionMeta{IP: req.IP})
		}

	case list.cfg.Reqs.DeleteFormRequestType:
		var req deleteFormRequest
		if err = json.Unmarshal(event.Payload, &req); err == nil {
			err = list.service.DeleteForm(req.FormID)
		}

	default:
		list.logger.Warn("unknown event type",
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ID))
		return
	}

	if err != nil {
		list.logger.Error("error handling event",
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
