// Package controllers translates HTTP requests into service calls
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/middleware"
	"github.com/yigit/uniadmit/internal/pkg/helpers"
)

// pathID parses a positive integer path parameter, answering 400 otherwise
func pathID(ctx *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		detail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid "+label+" ID").
			WithField(name).
			WithDetails(label + " ID must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.NewFailureResponse(detail))
		return 0, false
	}
	return id, true
}

// caller returns the authenticated account id, answering 401 when absent
func caller(ctx *gin.Context) (int64, bool) {
	id, ok := middleware.CurrentAccountID(ctx)
	if !ok {
		detail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewFailureResponse(detail))
		return 0, false
	}
	return id, true
}

// page reads page/size query parameters
type page struct {
	number int
	size   int
	offset uint64
	limit  int
}

func pageFromQuery(ctx *gin.Context) page {
	number, size := helpers.ParsePaginationParams(ctx)
	offset, limit := helpers.CalculateOffsetLimit(number, size)
	return page{number: number, size: size, offset: offset, limit: limit}
}

func (p page) respond(ctx *gin.Context, items interface{}, total int64, message string) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      items,
		Pagination: helpers.NewPaginationInfo(total, p.number, p.size),
	}, message))
}
