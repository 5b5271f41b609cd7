package service

import (
	"github.com/shipline-next/internal/models"
	"github.com/shipline-next/internal/repository"
)

// GetJob 获取运单详情（含时间线与发票）
func (s *JobService) GetJob(id uint) (*models.Job, error) {
	job, err := s.jobRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// GetJobByTrackingCode 根据运单编号查询
func (s *JobService) GetJobByTrackingCode(code string) (*models.Job, error) {
	job, err := s.jobRepo.GetByTrackingCode(code)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// ListJobs 按条件分页查询运单
func (s *JobService) ListJobs(filter repository.JobListFilter) ([]models.Job, int64, error) {
	return s.jobRepo.List(filter)
}

// ListJobsByStatus 按状态分页查询运单
func (s *JobService) ListJobsByStatus(status string, page, pageSize int) ([]models.Job, int64, error) {
	return s.jobRepo.ListByStatus(status, page, pageSize)
}

// GetTimeline 获取运单完整时间线（按写入顺序）
func (s *JobService) GetTimeline(jobID uint) ([]models.TimelineEntry, error) {
	job, err := s.jobRepo.GetByID(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return s.timelineRepo.ListByJob(jobID)
}

// AllowedNextStatuses 当前状态在指定角色下可请求的后继状态
func (s *JobService) AllowedNextStatuses(jobID uint, role string) ([]string, error) {
	job, err := s.jobRepo.GetByID(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return AllowedForRole(job.Status, role), nil
}
