package usecase

import (
	"context"

	domsvc "CryptoEdge/internal/domain/service"
	"CryptoEdge/pkg/kafka"
	"CryptoEdge/pkg/logger"

	"github.com/goccy/go-json"
)

type tradeClosedEvent struct {
	ID   string  `json:"id"`
	Pair string  `json:"pair"`
	PnL  float64 `json:"pnl"`
}

// TradeClosedHandler rebuilds the learning digest whenever the trading
// subsystem reports a closed trade.
type TradeClosedHandler struct {
	topic  string
	memory domsvc.LearningMemory
	log    *logger.Logger
}

var _ kafka.MessageHandler = (*TradeClosedHandler)(nil)

func NewTradeClosedHandler(topic string, memory domsvc.LearningMemory, log *logger.Logger) *TradeClosedHandler {
	return &TradeClosedHandler{topic: topic, memory: memory, log: log.With(logger.Category("LEARNING"))}
}

func (h *TradeClosedHandler) Topic() string { return h.topic }

// Handle ignores the payload contents beyond logging; the digest is always
// recomputed from the full trade feed.
func (h *TradeClosedHandler) Handle(ctx context.Context, payload []byte) error {
	var ev tradeClosedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		h.log.Warn("undecodable trade event", logger.Error(err))
	}
	d, err := h.memory.Rebuild(ctx)
	if err != nil {
		return err
	}
	if d == nil {
		// another instance holds the rebuild lock
		return nil
	}
	h.log.Info("digest rebuilt after trade close",
		logger.String("trade_id", ev.ID),
		logger.String("pair", ev.Pair),
		logger.Int("trades", d.TotalTrades))
	return nil
}
