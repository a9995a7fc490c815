package api

import "github.com/starford/saffi/internal/pageservice"

// PageDetail is a single page, post or thread (aliased from the domain layer).
type PageDetail = pageservice.PageDetail

// GroupDetail is a group with its index page and members (aliased from the domain layer).
type GroupDetail = pageservice.GroupDetail

// TagDetail is a tag with its posts (aliased from the domain layer).
type TagDetail = pageservice.TagDetail

// GroupListResponse wraps the group names; the root group is "".
type GroupListResponse struct {
	Groups []string `json:"groups"`
}

// TagListResponse wraps the tag names.
type TagListResponse struct {
	Tags []string `json:"tags"`
}
