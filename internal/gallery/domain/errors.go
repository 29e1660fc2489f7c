package domain

import "errors"

var (
	ErrNoListings    = errors.New("no listings found")
	ErrGroupNotFound = errors.New("no files found for the given groupId")
	ErrAssetNotFound = errors.New("that image was not found")
	ErrEmptyBatch    = errors.New("upload batch contains no files")
	ErrBatchTooLarge = errors.New("upload batch exceeds the maximum number of files")
	ErrPartialBatch  = errors.New("upload batch was only partially stored")
	ErrPartialDelete = errors.New("group was only partially deleted")
	ErrInvalidQuery  = errors.New("invalid listing query")

	ErrCacheMiss = errors.New("key not found in cache")
)
