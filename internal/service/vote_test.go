package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/infra/upstream"
	"woori-codeshare/internal/repository/mocks"
	"woori-codeshare/internal/service"
)

func TestVoteService_Cast_InvalidTypeRejected(t *testing.T) {
	voteRepo := new(mocks.VoteRepository)
	stateRepo := new(mocks.StateRepository)
	svc := service.NewVoteService(voteRepo, stateRepo)

	for _, raw := range []string{"MAYBE", "positive", " NEUTRAL"} {
		err := svc.Cast(context.Background(), "s1", "alice", raw)
		assert.ErrorIs(t, err, service.ErrInvalidInput, raw)
	}
	stateRepo.AssertNotCalled(t, "AcquireVoteGuard", mock.Anything, mock.Anything, mock.Anything)
	voteRepo.AssertNotCalled(t, "Cast", mock.Anything, mock.Anything, mock.Anything)
}

func TestVoteService_Cast_AcceptedOnce(t *testing.T) {
	// Arrange
	voteRepo := new(mocks.VoteRepository)
	stateRepo := new(mocks.StateRepository)
	svc := service.NewVoteService(voteRepo, stateRepo)
	ctx := context.Background()
	stateRepo.On("AcquireVoteGuard", ctx, "s1", "alice").Return(true, nil).Once()
	stateRepo.On("AcquireVoteGuard", ctx, "s1", "alice").Return(false, nil).Once()
	voteRepo.On("Cast", ctx, "s1", domain.VotePositive).Return(nil).Once()

	// Act
	first := svc.Cast(ctx, "s1", "alice", "POSITIVE")
	second := svc.Cast(ctx, "s1", "alice", "NEGATIVE")

	// Assert
	assert.NoError(t, first)
	assert.ErrorIs(t, second, service.ErrAlreadyVoted)
	voteRepo.AssertExpectations(t)
}

func TestVoteService_Cast_GuardReleasedOnUpstreamFailure(t *testing.T) {
	voteRepo := new(mocks.VoteRepository)
	stateRepo := new(mocks.StateRepository)
	svc := service.NewVoteService(voteRepo, stateRepo)
	ctx := context.Background()
	stateRepo.On("AcquireVoteGuard", ctx, "s1", "alice").Return(true, nil)
	stateRepo.On("ReleaseVoteGuard", ctx, "s1", "alice").Return(nil).Once()
	voteRepo.On("Cast", ctx, "s1", domain.VoteNeutral).Return(&upstream.StatusError{Status: http.StatusBadGateway})

	err := svc.Cast(ctx, "s1", "alice", "NEUTRAL")
	assert.ErrorIs(t, err, service.ErrUpstream)
	stateRepo.AssertExpectations(t)
}

func TestVoteService_Results(t *testing.T) {
	voteRepo := new(mocks.VoteRepository)
	svc := service.NewVoteService(voteRepo, new(mocks.StateRepository))
	ctx := context.Background()
	voteRepo.On("Results", ctx, "s1").Return(domain.VoteCounts{domain.VotePositive: 3, domain.VoteNeutral: 1}, nil)

	counts, err := svc.Results(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 75, counts.Percentage(domain.VotePositive))
	assert.Equal(t, 25, counts.Percentage(domain.VoteNeutral))
	assert.Equal(t, 0, counts.Percentage(domain.VoteNegative))
}
