package container

import (
	"github.com/finvault/affiliate/cmd/affiliate/service"
	"github.com/finvault/affiliate/common/bootstrap"
	"github.com/finvault/affiliate/common/clients"
	"github.com/finvault/affiliate/common/ratelimit"
	"github.com/finvault/affiliate/common/repository"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Repositories
	ReflinkRepo     *repository.ReflinkRepository
	AffiliationRepo *repository.AffiliationRepository
	SettlementRepo  *repository.SettlementRepository
	RewardRepo      *repository.RewardRepository

	// Services
	ReflinkService    *service.ReflinkService
	SettlementService *service.SettlementService
	RewardService     *service.RewardService

	// Infrastructure
	RateLimiter *ratelimit.RateLimiter
	Wallet      *clients.WalletClient
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	// Initialize repositories
	reflinkRepo := repository.NewReflinkRepository(components.DB)
	affiliationRepo := repository.NewAffiliationRepository(components.DB)
	settlementRepo := repository.NewSettlementRepository(components.DB)
	rewardRepo := repository.NewRewardRepository(components.DB)

	// Initialize outbound clients
	wallet := clients.NewWalletClient(components.Config.Affiliate.WalletBaseURL, components.Logger)

	// Initialize services (bottom-up: dependencies first)
	reflinkService := service.NewReflinkService(
		reflinkRepo,
		affiliationRepo,
		components.Cache,
		components.Config.Cache.MembersTTL,
		components.Logger,
	)
	settlementService := service.NewSettlementService(
		settlementRepo,
		reflinkRepo,
		components.Logger,
	)
	rewardService := service.NewRewardService(
		rewardRepo,
		settlementService,
		wallet,
		components.Logger,
	)

	// Rate limiting rides on the bootstrap redis client
	var limiter *ratelimit.RateLimiter
	if components.Redis != nil {
		limiter = ratelimit.NewRateLimiter(components.Redis.Underlying(), components.Logger)
	}

	return &Container{
		Components:        components,
		ReflinkRepo:       reflinkRepo,
		AffiliationRepo:   affiliationRepo,
		SettlementRepo:    settlementRepo,
		RewardRepo:        rewardRepo,
		ReflinkService:    reflinkService,
		SettlementService: settlementService,
		RewardService:     rewardService,
		RateLimiter:       limiter,
		Wallet:            wallet,
	}, nil
}
