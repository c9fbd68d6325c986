package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/leadflow/internal/auditctx"
	testutil "github.com/charlesng35/leadflow/internal/database/testutil"
	"github.com/charlesng35/leadflow/internal/events"
	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/internal/pipeline"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
)

func TestLeadLifecycleAcrossStages(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()

	lead := f.create(t, "Ada", "ada@x.com")
	require.NotNil(t, lead.PipelineStageID)
	require.Equal(t, "s1", *lead.PipelineStageID)
	require.Equal(t, models.LeadStatusNew, lead.Status)
	require.Equal(t, models.LeadPriorityMedium, lead.Priority)

	moved, err := f.leads.MoveLeadToStage(ctx, lead.ID, "s2")
	require.NoError(t, err)
	require.Equal(t, models.LeadStatusProposal, moved.Status)

	moved, err = f.leads.MoveLeadToStage(ctx, lead.ID, "s3")
	require.NoError(t, err)
	require.Equal(t, models.LeadStatusClosedWon, moved.Status)
	require.Equal(t, "s3", *moved.PipelineStageID)

	stored, err := f.leads.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Equal(t, models.LeadStatusClosedWon, stored.Status)
	require.Equal(t, "s3", *stored.PipelineStageID)
}

func TestCreateLeadRequiresNameAndEmail(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()

	_, err := f.leads.CreateLead(ctx, CreateLeadInput{Name: "", Email: "a@b.com"})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.leads.CreateLead(ctx, CreateLeadInput{Name: "   ", Email: "a@b.com"})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.leads.CreateLead(ctx, CreateLeadInput{Name: "Ada", Email: "not-an-email"})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.leads.CreateLead(ctx, CreateLeadInput{Name: "Ada", Email: "a@b.com", Priority: "someday"})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.leads.CreateLead(ctx, CreateLeadInput{Name: "Ada", Email: "a@b.com", EstimatedValue: floatPtr(-1)})
	require.True(t, apperrors.IsValidation(err))

	var count int64
	require.NoError(t, f.db.Model(&models.Lead{}).Count(&count).Error)
	require.Zero(t, count)
	require.Empty(t, f.notifier.calls)
}

func TestCreateLeadEmitsNewLeadNotificationAndEvent(t *testing.T) {
	f := newLeadFixture(t)

	lead := f.create(t, "Ada", "ada@x.com")

	require.Len(t, f.notifier.calls, 1)
	require.Equal(t, models.NotificationNewLead, f.notifier.calls[0].kind)
	require.Equal(t, lead.ID, f.notifier.calls[0].relatedID)
	require.Equal(t, []events.Type{events.LeadCreated}, f.events.types())
}

func TestCreateLeadSucceedsWhenNotificationFails(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithStages(testutil.ScenarioStages()...))
	stages, err := NewStageService(db)
	require.NoError(t, err)

	notifications, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	leads, err := NewLeadService(db, stages, notifications)
	require.NoError(t, err)

	require.NoError(t, db.Migrator().DropTable(&models.Notification{}))

	lead, err := leads.CreateLead(context.Background(), CreateLeadInput{Name: "Ada", Email: "ada@x.com"})
	require.NoError(t, err)
	require.NotEmpty(t, lead.ID)

	stored, err := leads.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", stored.Name)
}

func TestCreateLeadWritesNotificationRow(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithStages(testutil.ScenarioStages()...))
	stages, err := NewStageService(db)
	require.NoError(t, err)
	notifications, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	leads, err := NewLeadService(db, stages, notifications)
	require.NoError(t, err)

	lead, err := leads.CreateLead(context.Background(), CreateLeadInput{Name: "Ada", Email: "ada@x.com"})
	require.NoError(t, err)

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, models.NotificationNewLead, rows[0].Type)
	require.NotNil(t, rows[0].RelatedID)
	require.Equal(t, lead.ID, *rows[0].RelatedID)
}

func TestCreateLeadWithLongNameStillNotifies(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithStages(testutil.ScenarioStages()...))
	stages, err := NewStageService(db)
	require.NoError(t, err)
	notifications, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	leads, err := NewLeadService(db, stages, notifications)
	require.NoError(t, err)

	name := strings.Repeat("n", 255)
	lead, err := leads.CreateLead(context.Background(), CreateLeadInput{Name: name, Email: "long@x.com"})
	require.NoError(t, err)
	require.Equal(t, name, lead.Name)

	var rows []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationNewLead).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Len(t, []rune(rows[0].Title), 255)
	require.True(t, strings.HasPrefix(rows[0].Title, "New lead: nnn"))
}

func TestCreateLeadWithExplicitStage(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()

	lead, err := f.leads.CreateLead(ctx, CreateLeadInput{Name: "Ada", Email: "ada@x.com", PipelineStageID: strPtr("s2")})
	require.NoError(t, err)
	require.Equal(t, "s2", *lead.PipelineStageID)
	require.Equal(t, models.LeadStatusProposal, lead.Status)

	_, err = f.leads.CreateLead(ctx, CreateLeadInput{Name: "Bo", Email: "bo@x.com", PipelineStageID: strPtr("nope")})
	require.True(t, apperrors.IsValidation(err))

	lead, err = f.leads.CreateLead(ctx, CreateLeadInput{Name: "Cy", Email: "cy@x.com", PipelineStageID: strPtr("  ")})
	require.NoError(t, err)
	require.Equal(t, "s1", *lead.PipelineStageID)
}

func TestCreateLeadWithoutStagesIsUnassigned(t *testing.T) {
	f := newLeadFixture(t, testutil.WithAutoMigrate())

	lead := f.create(t, "Ada", "ada@x.com")
	require.Nil(t, lead.PipelineStageID)
	require.Equal(t, models.LeadStatusNew, lead.Status)
}

func TestCreateLeadExtractsInstagramHandle(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()

	lead, err := f.leads.CreateLead(ctx, CreateLeadInput{
		Name:  "Ada",
		Email: "ada@x.com",
		Notes: "Loves reels.\nInstagram: @ada.makes_things",
	})
	require.NoError(t, err)
	require.Equal(t, "ada.makes_things", lead.InstagramHandle)

	lead, err = f.leads.CreateLead(ctx, CreateLeadInput{
		Name:            "Bo",
		Email:           "bo@x.com",
		Notes:           "Instagram: @other",
		InstagramHandle: "@explicit",
	})
	require.NoError(t, err)
	require.Equal(t, "explicit", lead.InstagramHandle)
}

func TestInstagramFromNotes(t *testing.T) {
	require.Equal(t, "handle", InstagramFromNotes("instagram:handle"))
	require.Equal(t, "a.b_c", InstagramFromNotes("INSTAGRAM:  @a.b_c and more"))
	require.Empty(t, InstagramFromNotes("no socials"))
}

func TestListLeadsFilterConjunction(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []models.Lead{
		{Name: "Acme Buyer", Email: "buyer@acme.com", Status: models.LeadStatusNew, Priority: models.LeadPriorityHigh},
		{Name: "Zed", Email: "zed@x.com", Company: "ACME Corp", Status: models.LeadStatusProposal, Priority: models.LeadPriorityLow},
		{Name: "Other", Email: "other@x.com", Status: models.LeadStatusNew, Priority: models.LeadPriorityLow},
		{Name: "Late Acme", Email: "late@x.com", Company: "acme", Status: models.LeadStatusNew, Priority: models.LeadPriorityLow},
	}
	for i := range seed {
		seed[i].CreatedAt = base.Add(time.Duration(i) * time.Hour)
		seed[i].PipelineStageID = strPtr("s1")
		require.NoError(t, f.db.Create(&seed[i]).Error)
	}

	leads, err := f.leads.ListLeads(ctx, LeadFilter{Search: "acme", Status: models.LeadStatusNew})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	require.Equal(t, "Late Acme", leads[0].Name)
	require.Equal(t, "Acme Buyer", leads[1].Name)

	leads, err = f.leads.ListLeads(ctx, LeadFilter{Search: "ACME", Priority: models.LeadPriorityLow})
	require.NoError(t, err)
	require.Len(t, leads, 2)

	leads, err = f.leads.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 4)
	require.Equal(t, "Late Acme", leads[0].Name)
	require.Equal(t, "Acme Buyer", leads[3].Name)

	leads, err = f.leads.ListLeads(ctx, LeadFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.Equal(t, "Other", leads[0].Name)

	leads, err = f.leads.ListLeads(ctx, LeadFilter{StageID: "s2"})
	require.NoError(t, err)
	require.Empty(t, leads)
}

func TestMoveLeadToStageNotFound(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()

	_, err := f.leads.MoveLeadToStage(ctx, "nonexistent-id", "s2")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	lead := f.create(t, "Ada", "ada@x.com")
	_, err = f.leads.MoveLeadToStage(ctx, lead.ID, "missing-stage")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	stored, err := f.leads.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Equal(t, "s1", *stored.PipelineStageID)
}

func TestMoveLeadBackwardFromClosedStageIsAllowed(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()

	lead := f.create(t, "Ada", "ada@x.com")
	_, err := f.leads.MoveLeadToStage(ctx, lead.ID, "s3")
	require.NoError(t, err)

	moved, err := f.leads.MoveLeadToStage(ctx, lead.ID, "s1")
	require.NoError(t, err)
	require.Equal(t, models.LeadStatusNew, moved.Status)
	require.Equal(t, "s1", *moved.PipelineStageID)
}

func TestMoveLeadConsistencyAcrossDefaultStages(t *testing.T) {
	f := newLeadFixture(t, testutil.WithSeedData())
	ctx := context.Background()
	lead := f.create(t, "Ada", "ada@x.com")

	for _, stage := range f.stages.ListStages(ctx) {
		moved, err := f.leads.MoveLeadToStage(ctx, lead.ID, stage.ID)
		require.NoError(t, err)
		require.Equal(t, stage.ID, *moved.PipelineStageID)
		require.Equal(t, pipeline.StatusFor(stage), moved.Status, stage.Name)
	}
}

func TestMoveLeadRecordsHistoryAndEvent(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()
	lead := f.create(t, "Ada", "ada@x.com")

	_, err := f.leads.MoveLeadToStage(ctx, lead.ID, "s2")
	require.NoError(t, err)
	_, err = f.leads.MoveLeadToStage(ctx, lead.ID, "s2")
	require.NoError(t, err)
	_, err = f.leads.MoveLeadToStage(ctx, lead.ID, "s3")
	require.NoError(t, err)

	history, err := f.leads.History(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "s1", *history[0].FromStageID)
	require.Equal(t, "s2", history[0].ToStageID)
	require.Equal(t, models.LeadStatusNew, history[0].FromStatus)
	require.Equal(t, models.LeadStatusProposal, history[0].ToStatus)
	require.Equal(t, "s3", history[1].ToStageID)
	require.Empty(t, history[0].ChangedBy)

	require.Equal(t, []events.Type{events.LeadCreated, events.LeadMoved, events.LeadMoved}, f.events.types())
	move, ok := f.events.events[1].Payload.(pipeline.Move)
	require.True(t, ok)
	require.Equal(t, "s2", move.ToStage)
	require.Equal(t, models.LeadStatusNew, move.FromStatus)

	_, err = f.leads.History(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMoveLeadRecordsActor(t *testing.T) {
	f := newLeadFixture(t)
	lead := f.create(t, "Ada", "ada@x.com")

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{Email: "owner@example.com"})
	_, err := f.leads.MoveLeadToStage(ctx, lead.ID, "s2")
	require.NoError(t, err)

	history, err := f.leads.History(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "owner@example.com", history[0].ChangedBy)
}

func TestMoveLeadLastWriteWins(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()
	lead := f.create(t, "Ada", "ada@x.com")

	first, err := NewLeadService(f.db, f.stages, nil)
	require.NoError(t, err)
	second, err := NewLeadService(f.db, f.stages, nil)
	require.NoError(t, err)

	_, err = first.MoveLeadToStage(ctx, lead.ID, "s2")
	require.NoError(t, err)
	_, err = second.MoveLeadToStage(ctx, lead.ID, "s3")
	require.NoError(t, err)

	stored, err := f.leads.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Equal(t, "s3", *stored.PipelineStageID)
	require.Equal(t, models.LeadStatusClosedWon, stored.Status)
}

func TestListLeadsSearchMatchesWildcardsLiterally(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()

	f.create(t, "Ada", "ada@x.com")
	f.create(t, "Bo", "bo@x.com")
	f.create(t, "snake_case", "snake@x.com")
	f.create(t, "100% Organic", "organic@x.com")

	leads, err := f.leads.ListLeads(ctx, LeadFilter{Search: "_"})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.Equal(t, "snake_case", leads[0].Name)

	leads, err = f.leads.ListLeads(ctx, LeadFilter{Search: "%"})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.Equal(t, "100% Organic", leads[0].Name)

	leads, err = f.leads.ListLeads(ctx, LeadFilter{Search: "!"})
	require.NoError(t, err)
	require.Empty(t, leads)
}

func TestUpdateLeadPartial(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()
	lead := f.create(t, "Ada", "ada@x.com")

	priority := models.LeadPriorityUrgent
	updated, err := f.leads.UpdateLead(ctx, lead.ID, UpdateLeadInput{
		Company:        strPtr("  Acme "),
		Priority:       &priority,
		EstimatedValue: floatPtr(1500),
	})
	require.NoError(t, err)
	require.Equal(t, "Ada", updated.Name)
	require.Equal(t, "Acme", updated.Company)
	require.Equal(t, models.LeadPriorityUrgent, updated.Priority)
	require.Equal(t, 1500.0, updated.Value())
	require.False(t, updated.UpdatedAt.Before(lead.UpdatedAt))

	require.Equal(t, models.NotificationLeadUpdated, f.notifier.calls[len(f.notifier.calls)-1].kind)
	require.Contains(t, f.events.types(), events.LeadUpdated)
}

func TestUpdateLeadStageChangeDerivesStatus(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()
	lead := f.create(t, "Ada", "ada@x.com")

	updated, err := f.leads.UpdateLead(ctx, lead.ID, UpdateLeadInput{PipelineStageID: strPtr("s3")})
	require.NoError(t, err)
	require.Equal(t, "s3", *updated.PipelineStageID)
	require.Equal(t, models.LeadStatusClosedWon, updated.Status)

	_, err = f.leads.UpdateLead(ctx, lead.ID, UpdateLeadInput{PipelineStageID: strPtr("missing")})
	require.True(t, apperrors.IsValidation(err))
}

func TestUpdateLeadUnknownStageLeavesLeadUntouched(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()
	lead := f.create(t, "Ada", "ada@x.com")
	calls := len(f.notifier.calls)

	_, err := f.leads.UpdateLead(ctx, lead.ID, UpdateLeadInput{
		Name:            strPtr("Changed"),
		PipelineStageID: strPtr("nope"),
	})
	require.True(t, apperrors.IsValidation(err))

	stored, err := f.leads.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", stored.Name)
	require.Equal(t, "s1", *stored.PipelineStageID)
	require.Len(t, f.notifier.calls, calls)
	require.NotContains(t, f.events.types(), events.LeadUpdated)
}

func TestUpdateLeadValidation(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()
	lead := f.create(t, "Ada", "ada@x.com")

	_, err := f.leads.UpdateLead(ctx, lead.ID, UpdateLeadInput{Name: strPtr(" ")})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.leads.UpdateLead(ctx, lead.ID, UpdateLeadInput{Email: strPtr("nope")})
	require.True(t, apperrors.IsValidation(err))

	bad := models.LeadPriority("whenever")
	_, err = f.leads.UpdateLead(ctx, lead.ID, UpdateLeadInput{Priority: &bad})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.leads.UpdateLead(ctx, "missing", UpdateLeadInput{Name: strPtr("x")})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteLead(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()
	lead := f.create(t, "Ada", "ada@x.com")
	_, err := f.leads.MoveLeadToStage(ctx, lead.ID, "s2")
	require.NoError(t, err)

	require.NoError(t, f.leads.DeleteLead(ctx, lead.ID))
	require.ErrorIs(t, f.leads.DeleteLead(ctx, lead.ID), apperrors.ErrNotFound)

	_, err = f.leads.GetLead(ctx, lead.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	var history int64
	require.NoError(t, f.db.Model(&models.LeadStageChange{}).Count(&history).Error)
	require.Zero(t, history)
	require.Contains(t, f.events.types(), events.LeadDeleted)
}

func TestCaptureLeadFallsBackToBookingFields(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()
	start := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)

	lead, err := f.leads.CaptureLead(ctx, CaptureInput{
		FormData: CaptureFormData{Company: "Acme", Budget: floatPtr(900), Instagram: "@acme"},
		BookingData: &CaptureBookingData{
			Name:      "Ada Booker",
			Email:     "ada@booking.com",
			StartTime: &start,
			Service:   "Chatbot",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Ada Booker", lead.Name)
	require.Equal(t, "ada@booking.com", lead.Email)
	require.Equal(t, "Acme", lead.Company)
	require.Equal(t, SourceBooking, lead.Source)
	require.Equal(t, "Chatbot", lead.ServiceInterest)
	require.Equal(t, "acme", lead.InstagramHandle)
	require.Equal(t, 900.0, lead.Value())
	require.NotNil(t, lead.BookingTime)
	require.True(t, lead.BookingTime.Equal(start))
	require.Equal(t, "s1", *lead.PipelineStageID)
	require.Equal(t, models.LeadStatusNew, lead.Status)
}

func TestCaptureLeadFromFormOnly(t *testing.T) {
	f := newLeadFixture(t)

	lead, err := f.leads.CaptureLead(context.Background(), CaptureInput{
		FormData: CaptureFormData{Name: "Ada", Email: "ada@x.com", Message: "Instagram: @ada"},
	})
	require.NoError(t, err)
	require.Equal(t, SourceWebsite, lead.Source)
	require.Equal(t, "ada", lead.InstagramHandle)

	_, err = f.leads.CaptureLead(context.Background(), CaptureInput{FormData: CaptureFormData{Email: "ada@x.com"}})
	require.True(t, apperrors.IsValidation(err))
}

func TestBoardRepositoryDrivesBoard(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()
	lead := f.create(t, "Ada", "ada@x.com")
	f.create(t, "Bo", "bo@x.com")

	board, err := pipeline.NewBoard(BoardRepository{Stages: f.stages, Leads: f.leads})
	require.NoError(t, err)
	view, err := board.Load(ctx)
	require.NoError(t, err)
	require.Len(t, view.Columns, 3)
	require.Equal(t, 2, view.Columns[0].Count)

	moved, err := board.Move(ctx, lead.ID, "s3")
	require.NoError(t, err)
	require.Equal(t, models.LeadStatusClosedWon, moved.Status)

	view = board.View()
	require.Equal(t, 1, view.Columns[0].Count)
	require.Equal(t, 1, view.Columns[2].Count)

	stored, err := f.leads.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Equal(t, "s3", *stored.PipelineStageID)
}
