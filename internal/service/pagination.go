package service

import (
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/repository"
)

// normalizePagination applies the defaults and caps used by every list
func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	return page, pageSize
}

func paginate(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	page, pageSize = normalizePagination(page, pageSize)
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
