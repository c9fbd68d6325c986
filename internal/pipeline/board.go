package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/charlesng35/leadflow/internal/models"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/metrics"
)

// ErrMoveInProgress is returned when a move is requested while another move
// on the same board is still waiting for persistence.
var ErrMoveInProgress = apperrors.New("PIPELINE_MOVE_IN_PROGRESS", "Another move is still being saved", http.StatusConflict)

// ErrBoardNotLoaded is returned by Move before the first successful Load.
var ErrBoardNotLoaded = errors.New("pipeline board: not loaded")

// Repository is the store the board reads from and persists moves through.
type Repository interface {
	ListStages(ctx context.Context) ([]models.PipelineStage, error)
	ListLeads(ctx context.Context) ([]models.Lead, error)
	MoveLeadToStage(ctx context.Context, leadID, stageID string) (*models.Lead, error)
}

// Column is one stage of the board with its leads and summary.
type Column struct {
	Stage      models.PipelineStage `json:"stage"`
	Leads      []models.Lead        `json:"leads"`
	Count      int                  `json:"count"`
	TotalValue float64              `json:"total_value"`
}

// View is an immutable rendering of the board.
type View struct {
	Columns    []Column      `json:"columns"`
	Unassigned []models.Lead `json:"unassigned"`
	TotalLeads int           `json:"total_leads"`
	TotalValue float64       `json:"total_value"`
	LoadedAt   time.Time     `json:"loaded_at"`
}

// Move describes a completed stage change.
type Move struct {
	Lead       models.Lead       `json:"lead"`
	FromStage  *string           `json:"from_stage_id"`
	ToStage    string            `json:"to_stage_id"`
	FromStatus models.LeadStatus `json:"from_status"`
}

// MoveObserver is notified after a move has been persisted.
type MoveObserver func(ctx context.Context, move Move)

// Board keeps the in-memory grouping of leads by stage. Moves are applied
// optimistically and reverted if persistence fails. Only one move may be in
// flight at a time.
type Board struct {
	repo Repository
	now  func() time.Time

	mu        sync.Mutex
	stages    []models.PipelineStage
	leads     []models.Lead
	loaded    bool
	loadedAt  time.Time
	moving    bool
	observers []MoveObserver
}

// Option customises a Board.
type Option func(*Board)

// WithObserver registers an observer for successful moves.
func WithObserver(fn MoveObserver) Option {
	return func(b *Board) {
		if fn != nil {
			b.observers = append(b.observers, fn)
		}
	}
}

// WithClock overrides the clock used for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBoard constructs an empty board over repo.
func NewBoard(repo Repository, opts ...Option) (*Board, error) {
	if repo == nil {
		return nil, errors.New("pipeline board: repository is required")
	}
	b := &Board{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Load fetches stages and leads concurrently and replaces the board state.
// The two reads are independent; no join is attempted.
func (b *Board) Load(ctx context.Context) (View, error) {
	var (
		stages []models.PipelineStage
		leads  []models.Lead
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stages, err = b.repo.ListStages(gctx)
		if err != nil {
			return fmt.Errorf("load stages: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		leads, err = b.repo.ListLeads(gctx)
		if err != nil {
			return fmt.Errorf("load leads: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	sorted := append([]models.PipelineStage(nil), stages...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OrderIndex < sorted[j].OrderIndex })

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stages = sorted
	b.leads = append([]models.Lead(nil), leads...)
	b.loaded = true
	b.loadedAt = b.now().UTC()
	return b.viewLocked(), nil
}

// View returns the current grouping without touching the store.
func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

// Move moves a lead to another stage. The local state changes first; the
// store is written second; on failure the local state is restored and the
// store error is returned. Moving a lead onto its current stage is a no-op.
func (b *Board) Move(ctx context.Context, leadID, stageID string) (*models.Lead, error) {
	b.mu.Lock()
	if !b.loaded {
		b.mu.Unlock()
		return nil, ErrBoardNotLoaded
	}
	if b.moving {
		b.mu.Unlock()
		return nil, ErrMoveInProgress
	}

	idx := b.leadIndexLocked(leadID)
	if idx < 0 {
		b.mu.Unlock()
		return nil, apperrors.ErrNotFound.WithMessage("Lead not found")
	}
	stage, ok := b.stageLocked(stageID)
	if !ok {
		b.mu.Unlock()
		return nil, apperrors.ErrNotFound.WithMessage("Pipeline stage not found")
	}

	if b.leads[idx].InStage(stageID) {
		lead := b.leads[idx]
		b.mu.Unlock()
		metrics.PipelineMoves.WithLabelValues("noop").Inc()
		return &lead, nil
	}

	snapshot := cloneLead(b.leads[idx])
	target := stageID
	b.leads[idx].PipelineStageID = &target
	b.leads[idx].Status = StatusFor(stage)
	b.moving = true
	b.mu.Unlock()

	persisted, err := b.repo.MoveLeadToStage(ctx, leadID, stageID)

	b.mu.Lock()
	b.moving = false
	if err != nil {
		if i := b.leadIndexLocked(leadID); i >= 0 {
			b.leads[i] = snapshot
		}
		b.mu.Unlock()
		metrics.PipelineMoves.WithLabelValues("failure").Inc()
		return nil, err
	}

	if i := b.leadIndexLocked(leadID); i >= 0 {
		if persisted == nil {
			local := cloneLead(b.leads[i])
			persisted = &local
		}
		b.leads[i] = cloneLead(*persisted)
	}
	if persisted == nil {
		local := cloneLead(snapshot)
		local.PipelineStageID = &target
		local.Status = StatusFor(stage)
		persisted = &local
	}
	observers := append([]MoveObserver(nil), b.observers...)
	b.mu.Unlock()

	metrics.PipelineMoves.WithLabelValues("success").Inc()
	move := Move{
		Lead:       *persisted,
		FromStage:  snapshot.PipelineStageID,
		ToStage:    stageID,
		FromStatus: snapshot.Status,
	}
	for _, fn := range observers {
		fn(ctx, move)
	}
	return persisted, nil
}

func (b *Board) viewLocked() View {
	view := View{
		Columns:    make([]Column, 0, len(b.stages)),
		Unassigned: []models.Lead{},
		LoadedAt:   b.loadedAt,
	}

	index := make(map[string]int, len(b.stages))
	for i, stage := range b.stages {
		index[stage.ID] = i
		view.Columns = append(view.Columns, Column{Stage: stage, Leads: []models.Lead{}})
	}

	for _, lead := range b.leads {
		view.TotalLeads++
		view.TotalValue += lead.Value()
		if lead.PipelineStageID != nil {
			if i, ok := index[*lead.PipelineStageID]; ok {
				col := &view.Columns[i]
				col.Leads = append(col.Leads, cloneLead(lead))
				col.Count++
				col.TotalValue += lead.Value()
				continue
			}
		}
		view.Unassigned = append(view.Unassigned, cloneLead(lead))
	}
	return view
}

func (b *Board) leadIndexLocked(id string) int {
	for i := range b.leads {
		if b.leads[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) stageLocked(id string) (models.PipelineStage, bool) {
	for _, stage := range b.stages {
		if stage.ID == id {
			return stage, true
		}
	}
	return models.PipelineStage{}, false
}

func cloneLead(lead models.Lead) models.Lead {
	out := lead
	if lead.PipelineStageID != nil {
		id := *lead.PipelineStageID
		out.PipelineStageID = &id
	}
	if lead.EstimatedValue != nil {
		v := *lead.EstimatedValue
		out.EstimatedValue = &v
	}
	if lead.BookingTime != nil {
		t := *lead.BookingTime
		out.BookingTime = &t
	}
	return out
}
