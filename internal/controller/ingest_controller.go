package controller

import (
	"time"

	"eeg-workload-be/internal/pkg/serverutils"
	"eeg-workload-be/internal/service"
	"eeg-workload-be/internal/websocket"
	"eeg-workload-be/pkg/classifier"

	"github.com/gofiber/fiber/v2"
)

type IIngestController interface {
	RegisterRoutes(r fiber.Router)
	Stats(ctx *fiber.Ctx) error
	Classifiers(ctx *fiber.Ctx) error
}

type ingestController struct {
	hub         *websocket.Hub
	persistence *service.PersistenceService
	classifiers *classifier.Registry
}

func NewIngestController(hub *websocket.Hub, persistence *service.PersistenceService, classifiers *classifier.Registry) IIngestController {
	return &ingestController{hub: hub, persistence: persistence, classifiers: classifiers}
}

func (c *ingestController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ingest")
	h.Get("/stats", c.Stats)
	h.Get("/classifiers", c.Classifiers)
}

type pendingRecords struct {
	Predictions    int `json:"predictions"`
	FeatureVectors int `json:"feature_vectors"`
	StreamSamples  int `json:"stream_samples"`
}

type ingestStats struct {
	Gateway websocket.Stats `json:"gateway"`
	Pending pendingRecords  `json:"pending_writes"`
}

func (c *ingestController) Stats(ctx *fiber.Ctx) error {
	p, f, s := c.persistence.Pending()
	return ctx.JSON(serverutils.SuccessResponse("Ingestion statistics", ingestStats{
		Gateway: c.hub.Stats(time.Now()),
		Pending: pendingRecords{Predictions: p, FeatureVectors: f, StreamSamples: s},
	}))
}

func (c *ingestController) Classifiers(ctx *fiber.Ctx) error {
	names := c.classifiers.Names()
	res := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		clf, err := c.classifiers.Get(name)
		if err != nil {
			continue
		}
		res = append(res, clf.Metadata())
	}
	return ctx.JSON(serverutils.SuccessResponse("Registered classifiers", res))
}
