package main

import (
	"time"

	"github.com/shipline-next/internal/authz"
	"github.com/shipline-next/internal/config"
	"github.com/shipline-next/internal/constants"
	"github.com/shipline-next/internal/logger"
	"github.com/shipline-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化预置角色，演示账号需要挂接 casbin 角色才能过路由门禁
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init authz service: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		stdLog.Fatalf("Failed to bootstrap builtin roles: %v", err)
	}

	// 添加演示员工账号（每个角色一个，密码均为 seed123456）
	hash, err := bcrypt.GenerateFromPassword([]byte("seed123456"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash seed password: %v", err)
	}
	staffSeeds := []models.Staff{
		{Username: "ops_admin", DisplayName: "运营管理员", Role: constants.RoleAdmin},
		{Username: "driver_wang", DisplayName: "司机小王", Role: constants.RoleDriver},
		{Username: "warehouse_li", DisplayName: "仓管小李", Role: constants.RoleWarehouse},
		{Username: "agent_zhao", DisplayName: "派送员小赵", Role: constants.RoleDeliveryAgent},
		{Username: "finance_chen", DisplayName: "财务小陈", Role: constants.RoleFinance},
		{Username: "cs_lin", DisplayName: "客服小林", Role: constants.RoleCustomerService},
	}
	staffIDs := map[string]uint{}
	for _, s := range staffSeeds {
		var existing models.Staff
		if err := models.DB.Where("username = ?", s.Username).First(&existing).Error; err != nil {
			s.PasswordHash = string(hash)
			s.Status = constants.StaffStatusActive
			if err := models.DB.Create(&s).Error; err != nil {
				stdLog.Printf("Failed to create staff %s: %v", s.Username, err)
				continue
			}
			stdLog.Printf("Created staff: %s (%s)", s.Username, s.Role)
			staffIDs[s.Username] = s.ID
		} else {
			stdLog.Printf("Staff already exists: %s", s.Username)
			staffIDs[s.Username] = existing.ID
		}
		if err := authzService.SetStaffRole(staffIDs[s.Username], s.Role); err != nil {
			stdLog.Printf("Failed to link role for %s: %v", s.Username, err)
		}
	}

	driverID := staffIDs["driver_wang"]
	adminID := staffIDs["ops_admin"]

	// 添加演示运单（覆盖揽收前、揽收中、已到仓三个阶段）
	type jobSeed struct {
		job    models.Job
		amount decimal.Decimal
	}
	jobSeeds := []jobSeed{
		{
			job: models.Job{
				TrackingCode:       "SHIP-20260829-SEED1",
				Status:             constants.JobStatusPending,
				SenderName:         "广州电子元件厂",
				SenderPhone:        "13800000001",
				ReceiverName:       "陈先生",
				ReceiverPhone:      "13900000001",
				OriginAddress:      "广州市天河区科韵路 12 号",
				DestinationAddress: "金边市俄罗斯大道 88 号",
				WeightKG:           models.NewMoneyFromDecimal(decimal.NewFromFloat(12.5)),
				CreatedBy:          adminID,
			},
			amount: decimal.NewFromFloat(86.50),
		},
		{
			job: models.Job{
				TrackingCode:       "SHIP-20260829-SEED2",
				Status:             constants.JobStatusAssigned,
				SenderName:         "深圳服装贸易公司",
				SenderPhone:        "13800000002",
				ReceiverName:       "Ms. Sokha",
				ReceiverPhone:      "13900000002",
				OriginAddress:      "深圳市福田区华强北路 5 号",
				DestinationAddress: "西哈努克市海滨路 3 号",
				AssignedDriverID:   &driverID,
				WeightKG:           models.NewMoneyFromDecimal(decimal.NewFromFloat(30)),
				CreatedBy:          adminID,
			},
			amount: decimal.NewFromFloat(210.00),
		},
		{
			job: models.Job{
				TrackingCode:       "SHIP-20260829-SEED3",
				Status:             constants.JobStatusArrivedAtWarehouse,
				SenderName:         "东莞五金制品厂",
				SenderPhone:        "13800000003",
				ReceiverName:       "Mr. Dara",
				ReceiverPhone:      "13900000003",
				OriginAddress:      "东莞市长安镇振安路 77 号",
				DestinationAddress: "暹粒市国道六号 15 号",
				AssignedDriverID:   &driverID,
				WeightKG:           models.NewMoneyFromDecimal(decimal.NewFromFloat(48.2)),
				CreatedBy:          adminID,
			},
			amount: decimal.NewFromFloat(337.40),
		},
	}

	for _, seed := range jobSeeds {
		var existing models.Job
		if err := models.DB.Where("tracking_code = ?", seed.job.TrackingCode).First(&existing).Error; err == nil {
			stdLog.Printf("Job already exists: %s", seed.job.TrackingCode)
			continue
		}
		job := seed.job
		if err := models.DB.Create(&job).Error; err != nil {
			stdLog.Printf("Failed to create job %s: %v", job.TrackingCode, err)
			continue
		}
		entry := models.TimelineEntry{
			JobID:     job.ID,
			Status:    job.Status,
			Cause:     constants.TimelineCauseManual,
			ActorID:   adminID,
			Notes:     "seed data",
			CreatedAt: time.Now(),
		}
		if err := models.DB.Create(&entry).Error; err != nil {
			stdLog.Printf("Failed to create timeline entry for %s: %v", job.TrackingCode, err)
		}
		invoice := models.Invoice{
			JobID:       job.ID,
			Currency:    cfg.Invoice.Currency,
			TotalAmount: models.NewMoneyFromDecimal(seed.amount),
			PaidAmount:  models.NewMoneyFromDecimal(decimal.Zero),
			Status:      constants.InvoiceStatusUnpaid,
		}
		if err := models.DB.Create(&invoice).Error; err != nil {
			stdLog.Printf("Failed to create invoice for %s: %v", job.TrackingCode, err)
		}
		stdLog.Printf("Created job: %s (%s)", job.TrackingCode, job.Status)
	}

	stdLog.Printf("Seed finished")
}
