package provider

import (
	"time"

	"github.com/shipline-next/internal/authz"
	"github.com/shipline-next/internal/cache"
	"github.com/shipline-next/internal/config"
	"github.com/shipline-next/internal/constants"
	"github.com/shipline-next/internal/logger"
	"github.com/shipline-next/internal/models"
	"github.com/shipline-next/internal/queue"
	"github.com/shipline-next/internal/repository"
	"github.com/shipline-next/internal/service"
	"github.com/shipline-next/internal/syncer"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Hub         *syncer.Hub

	// Repositories
	StaffRepo    repository.StaffRepository
	JobRepo      repository.JobRepository
	TimelineRepo repository.TimelineRepository
	BatchRepo    repository.BatchRepository
	InvoiceRepo  repository.InvoiceRepository
	PaymentRepo  repository.PaymentRepository

	// Services
	AuthzService    *authz.Service
	AuthService     *service.AuthService
	JobService      *service.JobService
	BatchService    *service.BatchService
	PaymentService  *service.PaymentService
	OverviewService *service.OverviewService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Hub:         syncer.NewHub(constants.SyncChannelDefault),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.StaffRepo = repository.NewStaffRepository(db)
	c.JobRepo = repository.NewJobRepository(db)
	c.TimelineRepo = repository.NewTimelineRepository(db)
	c.BatchRepo = repository.NewBatchRepository(db)
	c.InvoiceRepo = repository.NewInvoiceRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	idempotencyTTL := time.Duration(c.Config.Sync.IdempotencyTTLSeconds) * time.Second

	c.AuthService = service.NewAuthService(c.Config, c.StaffRepo)
	c.JobService = service.NewJobService(c.JobRepo, c.TimelineRepo, c.InvoiceRepo, c.StaffRepo, c.QueueClient, c.Hub, idempotencyTTL, c.Config.Invoice.Currency)
	c.BatchService = service.NewBatchService(c.BatchRepo, c.JobRepo, c.TimelineRepo, c.QueueClient, c.Hub)
	c.PaymentService = service.NewPaymentService(c.InvoiceRepo, c.PaymentRepo, c.JobRepo, idempotencyTTL)

	refreshInterval := time.Duration(c.Config.Sync.RefreshIntervalSeconds) * time.Second
	suppression := time.Duration(c.Config.Sync.SuppressionSeconds) * time.Second
	c.OverviewService = service.NewOverviewService(c.JobRepo, c.BatchRepo, refreshInterval, suppression)
}
