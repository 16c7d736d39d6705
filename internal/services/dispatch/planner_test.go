package dispatch

import (
	"testing"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/stretchr/testify/suite"
)

type fixedRand struct{ n int }

func (r fixedRand) Intn(int) int { return r.n }

type PlannerSuite struct {
	suite.Suite
}

func (s *PlannerSuite) TestBackoffDelay() {
	p := NewPlanner(DefaultPlannerConfig(), nil)
	s.Equal(5*time.Minute, p.BackoffDelay(1))
	s.Equal(15*time.Minute, p.BackoffDelay(2))
	s.Equal(30*time.Minute, p.BackoffDelay(3))
	s.Equal(60*time.Minute, p.BackoffDelay(4))
	s.Equal(60*time.Minute, p.BackoffDelay(100))
}

func (s *PlannerSuite) TestNextCheckDelay_Terminal() {
	p := NewPlanner(DefaultPlannerConfig(), nil)
	s.Equal(365*24*time.Hour, p.NextCheckDelay(models.OrderStatusDelivered))
	s.Equal(365*24*time.Hour, p.NextCheckDelay(models.OrderStatusCancelled))
	s.Equal(365*24*time.Hour, p.NextCheckDelay(models.OrderStatusRefunded))
}

func (s *PlannerSuite) TestNextCheckDelay_MovingUsesRange() {
	p := NewPlanner(PlannerConfig{
		MovingMinDelay: 30 * time.Second,
		MovingMaxDelay: 90 * time.Second,
	}, fixedRand{n: 10})
	s.Equal(40*time.Second, p.NextCheckDelay(models.OrderStatusShipped))
	s.Equal(40*time.Second, p.NextCheckDelay(models.OrderStatusOutForDelivery))
}

func (s *PlannerSuite) TestNextCheckDelay_Idle() {
	p := NewPlanner(DefaultPlannerConfig(), nil)
	s.Equal(1*time.Minute, p.NextCheckDelay(models.OrderStatusProcessing))
	s.Equal(1*time.Minute, p.NextCheckDelay(models.OrderStatusPacked))
}

func TestPlannerSuite(t *testing.T) {
	suite.Run(t, new(PlannerSuite))
}
