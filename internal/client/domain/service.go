package domain

import (
	"context"
	"errors"

	"github.com/ledgerly/ledgerly/pkg/db/pagination"
)

type CreateClientRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Address string `json:"address"`
}

type UpdateClientRequest struct {
	ID      string
	Name    *string `json:"name"`
	Contact *string `json:"contact"`
	Address *string `json:"address"`
}

type ListClientRequest struct {
	pagination.Pagination
	Name string
}

type ListClientFilter struct {
	Name   string
	Cursor *pagination.Cursor
	Limit  int
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type GetClientRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	Update(context.Context, UpdateClientRequest) (Client, error)
	List(context.Context, ListClientRequest) (ListClientResponse, error)
	GetByID(context.Context, GetClientRequest) (Client, error)
	Delete(context.Context, GetClientRequest) error
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrNotFound         = errors.New("not_found")
	ErrForbidden        = errors.New("forbidden")
)
