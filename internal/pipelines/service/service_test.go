package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"zapdesk_backend/internal/pipelines/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/events"
	"zapdesk_backend/platform/logger"
)

// fakeRepo holds cards in memory and serializes InsertCardLocked the way
// the advisory lock does, so concurrency tests are faithful.
type fakeRepo struct {
	mu        sync.Mutex
	pipelines map[uuid.UUID]repository.Pipeline
	columns   map[uuid.UUID][]repository.Column
	cards     map[uuid.UUID]repository.Card
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		pipelines: make(map[uuid.UUID]repository.Pipeline),
		columns:   make(map[uuid.UUID][]repository.Column),
		cards:     make(map[uuid.UUID]repository.Card),
	}
}

func (f *fakeRepo) CreatePipeline(_ context.Context, workspaceID uuid.UUID, name string, columns []string) (repository.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := repository.Pipeline{ID: uuid.New(), WorkspaceID: workspaceID, Name: name}
	for i, col := range columns {
		c := repository.Column{ID: uuid.New(), PipelineID: p.ID, Name: col, Position: i}
		f.columns[p.ID] = append(f.columns[p.ID], c)
		p.Columns = append(p.Columns, c)
	}
	f.pipelines[p.ID] = p
	return p, nil
}

func (f *fakeRepo) GetPipeline(_ context.Context, workspaceID, id uuid.UUID) (repository.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[id]
	if !ok || p.WorkspaceID != workspaceID {
		return repository.Pipeline{}, apperr.NotFound("pipeline not found")
	}
	return p, nil
}

func (f *fakeRepo) ListPipelines(_ context.Context, workspaceID uuid.UUID) ([]repository.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Pipeline
	for _, p := range f.pipelines {
		if p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) FirstPipeline(_ context.Context, workspaceID uuid.UUID) (repository.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pipelines {
		if p.WorkspaceID == workspaceID {
			return p, nil
		}
	}
	return repository.Pipeline{}, apperr.NotFound("workspace has no pipelines")
}

func (f *fakeRepo) DeletePipeline(_ context.Context, workspaceID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pipelines, id)
	return nil
}

func (f *fakeRepo) FirstColumn(_ context.Context, pipelineID uuid.UUID) (repository.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cols := f.columns[pipelineID]
	if len(cols) == 0 {
		return repository.Column{}, apperr.NotFound("pipeline has no columns")
	}
	first := cols[0]
	for _, c := range cols[1:] {
		if c.Position < first.Position {
			first = c
		}
	}
	return first, nil
}

func (f *fakeRepo) ColumnBelongsToPipeline(_ context.Context, pipelineID, columnID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.columns[pipelineID] {
		if c.ID == columnID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) GetCardByConversation(_ context.Context, workspaceID, conversationID uuid.UUID) (repository.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.WorkspaceID == workspaceID && c.ConversationID != nil && *c.ConversationID == conversationID {
			return c, nil
		}
	}
	return repository.Card{}, apperr.NotFound("card not found")
}

func (f *fakeRepo) FindOpenCard(_ context.Context, workspaceID, contactID, pipelineID uuid.UUID) (repository.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.findOpenLocked(workspaceID, contactID, pipelineID); ok {
		return c, nil
	}
	return repository.Card{}, apperr.NotFound("card not found")
}

func (f *fakeRepo) findOpenLocked(workspaceID, contactID, pipelineID uuid.UUID) (repository.Card, bool) {
	for _, c := range f.cards {
		if c.WorkspaceID == workspaceID && c.ContactID == contactID &&
			c.PipelineID == pipelineID && c.Status == repository.CardStatusOpen {
			return c, true
		}
	}
	return repository.Card{}, false
}

func (f *fakeRepo) InsertCardLocked(_ context.Context, card repository.NewCard) (repository.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if card.Status == repository.CardStatusOpen {
		if _, ok := f.findOpenLocked(card.WorkspaceID, card.ContactID, card.PipelineID); ok {
			return repository.Card{}, repository.ErrDuplicateOpenCard
		}
	}
	c := repository.Card{
		ID:             uuid.New(),
		WorkspaceID:    card.WorkspaceID,
		PipelineID:     card.PipelineID,
		ColumnID:       card.ColumnID,
		ConversationID: card.ConversationID,
		ContactID:      card.ContactID,
		Title:          card.Title,
		Status:         card.Status,
		Value:          card.Value,
		Tags:           card.Tags,
	}
	f.cards[c.ID] = c
	return c, nil
}

func (f *fakeRepo) TouchCard(_ context.Context, workspaceID, id uuid.UUID) (repository.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[id]
	if !ok || c.WorkspaceID != workspaceID {
		return repository.Card{}, apperr.NotFound("card not found")
	}
	return c, nil
}

func (f *fakeRepo) ListCards(_ context.Context, workspaceID, pipelineID uuid.UUID) ([]repository.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Card
	for _, c := range f.cards {
		if c.WorkspaceID == workspaceID && c.PipelineID == pipelineID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetCard(_ context.Context, workspaceID, id uuid.UUID) (repository.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[id]
	if !ok || c.WorkspaceID != workspaceID {
		return repository.Card{}, apperr.NotFound("card not found")
	}
	return c, nil
}

func (f *fakeRepo) MoveCard(_ context.Context, workspaceID, id, columnID uuid.UUID) (repository.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cards[id]
	c.ColumnID = columnID
	f.cards[id] = c
	return c, nil
}

func (f *fakeRepo) SetCardStatus(_ context.Context, workspaceID, id uuid.UUID, status string) (repository.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[id]
	if !ok {
		return repository.Card{}, apperr.NotFound("card not found")
	}
	if status == repository.CardStatusOpen && c.Status != repository.CardStatusOpen {
		if _, open := f.findOpenLocked(c.WorkspaceID, c.ContactID, c.PipelineID); open {
			return repository.Card{}, repository.ErrDuplicateOpenCard
		}
	}
	c.Status = status
	f.cards[id] = c
	return c, nil
}

func (f *fakeRepo) UpdateCard(_ context.Context, workspaceID, id uuid.UUID, update repository.CardUpdate) (repository.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[id]
	if !ok {
		return repository.Card{}, apperr.NotFound("card not found")
	}
	c.Title = update.Title
	c.Value = update.Value
	c.Tags = update.Tags
	c.Status = update.Status
	f.cards[id] = c
	return c, nil
}

func (f *fakeRepo) DeleteCard(_ context.Context, workspaceID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cards, id)
	return nil
}

var _ repository.Repository = (*fakeRepo)(nil)

type fixture struct {
	svc         *Service
	repo        *fakeRepo
	workspaceID uuid.UUID
	pipeline    repository.Pipeline
	contactID   uuid.UUID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeRepo()
	log := logger.New("test")
	svc := New(repo, events.NewInMemoryBus(log), log)

	workspaceID := uuid.New()
	pipeline, err := svc.CreatePipeline(context.Background(), workspaceID, "Vendas", []string{"Novo", "Negociando", "Fechado"})
	if err != nil {
		t.Fatalf("create pipeline: %v", err)
	}

	return &fixture{svc: svc, repo: repo, workspaceID: workspaceID, pipeline: pipeline, contactID: uuid.New()}
}

func TestCheckAndCreateOpensCardInFirstColumn(t *testing.T) {
	fx := setup(t)
	convID := uuid.New()

	res, err := fx.svc.CheckAndCreate(context.Background(), SmartCardInput{
		WorkspaceID:    fx.workspaceID,
		ContactID:      fx.contactID,
		ConversationID: &convID,
		PipelineID:     &fx.pipeline.ID,
		ContactName:    "Maria Silva",
		ContactPhone:   "+5511999990001",
	})
	if err != nil {
		t.Fatalf("check and create: %v", err)
	}
	if res.Action != ActionCreated {
		t.Fatalf("expected created, got %q", res.Action)
	}
	if res.Card.ColumnID != fx.pipeline.Columns[0].ID {
		t.Fatal("card should land in the first column")
	}
	if res.Card.Status != repository.CardStatusOpen {
		t.Fatalf("expected open status, got %q", res.Card.Status)
	}
	if res.Card.Title != "Maria Silva" {
		t.Fatalf("title should come from the contact name, got %q", res.Card.Title)
	}
	if res.Card.Value != 0 {
		t.Fatalf("new card starts at zero value, got %v", res.Card.Value)
	}
	if len(res.Card.Tags) != 0 {
		t.Fatalf("new card starts with no tags, got %v", res.Card.Tags)
	}
}

func TestCheckAndCreateTitleFallsBackToPhone(t *testing.T) {
	fx := setup(t)

	res, err := fx.svc.CheckAndCreate(context.Background(), SmartCardInput{
		WorkspaceID:  fx.workspaceID,
		ContactID:    fx.contactID,
		PipelineID:   &fx.pipeline.ID,
		ContactName:  "  ",
		ContactPhone: "+5511999990001",
	})
	if err != nil {
		t.Fatalf("check and create: %v", err)
	}
	if res.Card.Title != "+5511999990001" {
		t.Fatalf("title should fall back to phone, got %q", res.Card.Title)
	}
}

func TestCheckAndCreateReturnsExistingForConversation(t *testing.T) {
	fx := setup(t)
	convID := uuid.New()
	in := SmartCardInput{
		WorkspaceID:    fx.workspaceID,
		ContactID:      fx.contactID,
		ConversationID: &convID,
		PipelineID:     &fx.pipeline.ID,
		ContactPhone:   "+5511999990001",
	}

	first, err := fx.svc.CheckAndCreate(context.Background(), in)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := fx.svc.CheckAndCreate(context.Background(), in)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.Action != ActionUpdated {
		t.Fatalf("expected updated, got %q", second.Action)
	}
	if second.Card.ID != first.Card.ID {
		t.Fatal("second call must return the same card")
	}
}

func TestCheckAndCreateRejectsSecondOpenCard(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	if _, err := fx.svc.CheckAndCreate(ctx, SmartCardInput{
		WorkspaceID:  fx.workspaceID,
		ContactID:    fx.contactID,
		PipelineID:   &fx.pipeline.ID,
		ContactPhone: "+5511999990001",
	}); err != nil {
		t.Fatalf("first card: %v", err)
	}

	otherConv := uuid.New()
	_, err := fx.svc.CheckAndCreate(ctx, SmartCardInput{
		WorkspaceID:    fx.workspaceID,
		ContactID:      fx.contactID,
		ConversationID: &otherConv,
		PipelineID:     &fx.pipeline.ID,
		ContactPhone:   "+5511999990001",
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) || domainErr.Code != "duplicate_open_card" {
		t.Fatalf("expected duplicate_open_card code, got %v", err)
	}
}

func TestCheckAndCreateAllowsCardAfterPriorClosed(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	first, err := fx.svc.CheckAndCreate(ctx, SmartCardInput{
		WorkspaceID:  fx.workspaceID,
		ContactID:    fx.contactID,
		PipelineID:   &fx.pipeline.ID,
		ContactPhone: "+5511999990001",
	})
	if err != nil {
		t.Fatalf("first card: %v", err)
	}
	if _, err := fx.svc.SetCardStatus(ctx, fx.workspaceID, first.Card.ID, repository.CardStatusWon); err != nil {
		t.Fatalf("close card: %v", err)
	}

	second, err := fx.svc.CheckAndCreate(ctx, SmartCardInput{
		WorkspaceID:  fx.workspaceID,
		ContactID:    fx.contactID,
		PipelineID:   &fx.pipeline.ID,
		ContactPhone: "+5511999990001",
	})
	if err != nil {
		t.Fatalf("second card after close: %v", err)
	}
	if second.Action != ActionCreated {
		t.Fatalf("expected created, got %q", second.Action)
	}
}

func TestCheckAndCreateDefaultsToFirstPipeline(t *testing.T) {
	fx := setup(t)

	res, err := fx.svc.CheckAndCreate(context.Background(), SmartCardInput{
		WorkspaceID:  fx.workspaceID,
		ContactID:    fx.contactID,
		ContactPhone: "+5511999990001",
	})
	if err != nil {
		t.Fatalf("check and create: %v", err)
	}
	if res.Card.PipelineID != fx.pipeline.ID {
		t.Fatal("omitted pipeline should resolve to the workspace's first")
	}
}

// Concurrent calls for the same contact and pipeline must yield exactly one
// open card; every loser sees the duplicate conflict.
func TestConcurrentCheckAndCreateYieldsSingleOpenCard(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	created := make(chan repository.Card, callers)
	conflicts := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := fx.svc.CheckAndCreate(ctx, SmartCardInput{
				WorkspaceID:  fx.workspaceID,
				ContactID:    fx.contactID,
				PipelineID:   &fx.pipeline.ID,
				ContactPhone: "+5511999990001",
			})
			if err != nil {
				conflicts <- err
				return
			}
			created <- res.Card
		}()
	}
	wg.Wait()
	close(created)
	close(conflicts)

	if got := len(created); got != 1 {
		t.Fatalf("expected exactly 1 created card, got %d", got)
	}
	for err := range conflicts {
		if !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("losers must see a conflict, got %v", err)
		}
	}

	cards, err := fx.svc.ListCards(ctx, fx.workspaceID, fx.pipeline.ID)
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}
	open := 0
	for _, c := range cards {
		if c.Status == repository.CardStatusOpen {
			open++
		}
	}
	if open != 1 {
		t.Fatalf("expected 1 open card, got %d", open)
	}
}

func TestMoveCardRejectsForeignColumn(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	res, err := fx.svc.CheckAndCreate(ctx, SmartCardInput{
		WorkspaceID:  fx.workspaceID,
		ContactID:    fx.contactID,
		PipelineID:   &fx.pipeline.ID,
		ContactPhone: "+5511999990001",
	})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}

	_, err = fx.svc.MoveCard(ctx, fx.workspaceID, res.Card.ID, uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	moved, err := fx.svc.MoveCard(ctx, fx.workspaceID, res.Card.ID, fx.pipeline.Columns[1].ID)
	if err != nil {
		t.Fatalf("move card: %v", err)
	}
	if moved.ColumnID != fx.pipeline.Columns[1].ID {
		t.Fatal("card should land in the target column")
	}
}

func TestCreatePipelineRequiresColumns(t *testing.T) {
	fx := setup(t)

	_, err := fx.svc.CreatePipeline(context.Background(), fx.workspaceID, "Suporte", nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
