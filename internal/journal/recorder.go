package journal

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/clock"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorder appends reconciliation records. Writes are best-effort: a journal
// failure is logged and never interrupts reconciliation. A nil Recorder is
// valid and drops everything.
type Recorder struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
	log   *zap.Logger
}

func NewRecorder(db *gorm.DB, genID *snowflake.Node, clk clock.Clock, log *zap.Logger) *Recorder {
	return &Recorder{
		db:    db,
		genID: genID,
		clock: clk,
		log:   log.Named("journal"),
	}
}

// Transition records a checkout status change.
func (r *Recorder) Transition(ctx context.Context, checkoutID string, from, to domain.Status, metadata map[string]any) {
	fromValue := from.String()
	toValue := to.String()
	record := Record{
		CheckoutID: checkoutID,
		Kind:       KindStatusTransition,
		Metadata:   toJSONMap(metadata),
	}
	if fromValue != "" {
		record.FromStatus = &fromValue
	}
	record.ToStatus = &toValue
	r.insert(ctx, record)
}

// SideEffect records a one-shot action (confirm attempt, redirect, analytics
// capture, seat assignment).
func (r *Recorder) SideEffect(ctx context.Context, checkoutID string, kind string, metadata map[string]any) {
	r.insert(ctx, Record{
		CheckoutID: checkoutID,
		Kind:       kind,
		Metadata:   toJSONMap(metadata),
	})
}

func (r *Recorder) insert(ctx context.Context, record Record) {
	if r == nil || r.db == nil || r.genID == nil {
		return
	}
	if strings.TrimSpace(record.CheckoutID) == "" || strings.TrimSpace(record.Kind) == "" {
		return
	}
	record.ID = r.genID.Generate()
	record.CreatedAt = r.clock.Now()
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		r.log.Warn("journal write failed",
			zap.String("checkout_id", record.CheckoutID),
			zap.String("kind", record.Kind),
			zap.Error(err),
		)
	}
}

func toJSONMap(metadata map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for key, value := range metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		out[key] = value
	}
	return out
}
