// Package transport defines request and response shapes for contact routes.
package transport

import "github.com/google/uuid"

type CreateContactRequest struct {
	Name      string  `json:"name" validate:"max=120"`
	Phone     string  `json:"phone" validate:"required"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url"`
}

type UpdateContactRequest struct {
	Name      string  `json:"name" validate:"required,max=120"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url"`
}

type ListContactsQuery struct {
	Search string     `form:"search"`
	TagID  *uuid.UUID `form:"tagId"`
	Limit  int        `form:"limit"`
	Offset int        `form:"offset"`
}

type CreateTagRequest struct {
	Name  string `json:"name" validate:"required,max=60"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}
