package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"breachledger/internal/incident/chain"
	"breachledger/internal/incident/models"
	id "breachledger/pkg/domain"
	dErrors "breachledger/pkg/domain-errors"
	"breachledger/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	org   id.OrganizationID
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.org = id.OrganizationID(uuid.New())
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) seed(token string) *models.Incident {
	inc := &models.Incident{
		ID:                   id.NewIncidentID(),
		OrganizationID:       s.org,
		CurrentVersionNumber: 1,
		Status:               models.StatusDraft,
		CreatedAt:            s.now,
		UpdatedAt:            s.now,
	}
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx chain.Store) error {
		internalID, err := tx.NextInternalID(ctx, s.org)
		if err != nil {
			return err
		}
		inc.InternalID = internalID
		if err := tx.InsertIncident(ctx, inc); err != nil {
			return err
		}
		return tx.InsertVersion(ctx, s.version(inc.ID, 1, token))
	})
	s.Require().NoError(err)
	return inc
}

func (s *InMemoryStoreSuite) version(incidentID id.IncidentID, number int, token string) *models.IncidentVersion {
	return &models.IncidentVersion{
		ID:            id.NewVersionID(),
		IncidentID:    incidentID,
		VersionNumber: number,
		Snapshot:      models.Snapshot{Description: "breach", Status: models.StatusDraft}.Normalized(),
		Token:         token,
		CreatedAt:     s.now,
	}
}

func tok(c string) string {
	return strings.Repeat(c, 64)
}

func (s *InMemoryStoreSuite) TestCommitPublishesStagedWrites() {
	inc := s.seed(tok("a"))

	head, versions, err := s.store.GetHistory(s.ctx, inc.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), head.InternalID)
	s.Require().Len(versions, 1)
	s.Equal(tok("a"), versions[0].Token)

	foundInc, foundVersion, err := s.store.FindByToken(s.ctx, tok("a"))
	s.Require().NoError(err)
	s.Equal(inc.ID, foundInc.ID)
	s.Equal(1, foundVersion.VersionNumber)
}

func (s *InMemoryStoreSuite) TestFailedTransactionLeavesNothingBehind() {
	boom := errors.New("boom")
	incID := id.NewIncidentID()
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx chain.Store) error {
		if _, err := tx.NextInternalID(ctx, s.org); err != nil {
			return err
		}
		if err := tx.InsertIncident(ctx, &models.Incident{ID: incID, OrganizationID: s.org, CurrentVersionNumber: 1}); err != nil {
			return err
		}
		if err := tx.InsertVersion(ctx, s.version(incID, 1, tok("b"))); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.GetIncident(s.ctx, incID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, _, err = s.store.FindByToken(s.ctx, tok("b"))
	s.ErrorIs(err, sentinel.ErrNotFound)

	// The counter increment was rolled back with the rest.
	inc := s.seed(tok("c"))
	s.Equal(int64(1), inc.InternalID)
}

func (s *InMemoryStoreSuite) TestCancelledBeforeCommitIsTimeout() {
	ctx, cancel := context.WithCancel(s.ctx)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx chain.Store) error {
		_, err := tx.NextInternalID(ctx, s.org)
		cancel()
		return err
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

	inc := s.seed(tok("d"))
	s.Equal(int64(1), inc.InternalID)
}

func (s *InMemoryStoreSuite) TestTokenUniqueAcrossIncidents() {
	inc := s.seed(tok("e"))

	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx chain.Store) error {
		return tx.InsertVersion(ctx, s.version(inc.ID, 2, tok("e")))
	})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *InMemoryStoreSuite) TestDuplicateVersionNumberConflicts() {
	inc := s.seed(tok("f"))

	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx chain.Store) error {
		return tx.InsertVersion(ctx, s.version(inc.ID, 1, tok("0")))
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestAdvanceHeadRequiresPredecessor() {
	inc := s.seed(tok("1"))

	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx chain.Store) error {
		return tx.AdvanceHead(ctx, inc.ID, 3, models.StatusActive, s.now)
	})
	s.ErrorIs(err, sentinel.ErrConflict)

	err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx chain.Store) error {
		if err := tx.InsertVersion(ctx, s.version(inc.ID, 2, tok("2"))); err != nil {
			return err
		}
		return tx.AdvanceHead(ctx, inc.ID, 2, models.StatusActive, s.now.Add(time.Hour))
	})
	s.Require().NoError(err)

	head, err := s.store.GetIncident(s.ctx, inc.ID)
	s.Require().NoError(err)
	s.Equal(2, head.CurrentVersionNumber)
	s.Equal(models.StatusActive, head.Status)
}

func (s *InMemoryStoreSuite) TestReadsReturnCopies() {
	inc := s.seed(tok("3"))

	_, versions, err := s.store.GetHistory(s.ctx, inc.ID)
	s.Require().NoError(err)
	versions[0].Snapshot.Description = "rewritten"
	versions[0].Token = tok("4")

	_, again, err := s.store.GetHistory(s.ctx, inc.ID)
	s.Require().NoError(err)
	s.Equal("breach", again[0].Snapshot.Description)
	s.Equal(tok("3"), again[0].Token)
}

func (s *InMemoryStoreSuite) TestDeleteRemovesVersionsAndTokens() {
	inc := s.seed(tok("5"))

	var tokens []string
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx chain.Store) error {
		var err error
		tokens, err = tx.VersionTokens(ctx, inc.ID)
		if err != nil {
			return err
		}
		return tx.DeleteIncident(ctx, inc.ID)
	})
	s.Require().NoError(err)
	s.Equal([]string{tok("5")}, tokens)

	_, _, err = s.store.GetHistory(s.ctx, inc.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, _, err = s.store.FindByToken(s.ctx, tok("5"))
	s.ErrorIs(err, sentinel.ErrNotFound)

	next := s.seed(tok("6"))
	s.Equal(int64(2), next.InternalID)
}

func (s *InMemoryStoreSuite) TestListByOrganizationIsScopedAndOrdered() {
	first := s.seed(tok("7"))
	second := s.seed(tok("8"))

	other := s.org
	s.org = id.OrganizationID(uuid.New())
	s.seed(tok("9"))
	s.org = other

	list, err := s.store.ListByOrganization(s.ctx, other)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(first.ID, list[0].ID)
	s.Equal(second.ID, list[1].ID)
}

func (s *InMemoryStoreSuite) TestLockedIncidentBlocksUntilRelease() {
	inc := s.seed(tok("a"))

	locked := make(chan struct{})
	unlock := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.store.RunInTx(s.ctx, func(ctx context.Context, tx chain.Store) error {
			if _, err := tx.LockIncident(ctx, inc.ID); err != nil {
				return err
			}
			close(locked)
			<-unlock
			return nil
		})
	}()
	<-locked

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx chain.Store) error {
		_, err := tx.LockIncident(ctx, inc.ID)
		return err
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

	close(unlock)
	wg.Wait()

	err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx chain.Store) error {
		_, err := tx.LockIncident(ctx, inc.ID)
		return err
	})
	s.NoError(err)
}

func (s *InMemoryStoreSuite) TestOrganizations() {
	orgs := NewInMemoryOrganizations()
	_, err := orgs.Name(s.ctx, s.org)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(orgs.Upsert(s.ctx, s.org, "  Acme GmbH "))
	name, err := orgs.Name(s.ctx, s.org)
	s.Require().NoError(err)
	s.Equal("Acme GmbH", name)
}
