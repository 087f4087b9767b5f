package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrMissingInput       = fmt.Errorf("input file not found")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")

	// API and platform errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrInvalidContainer = fmt.Errorf("invalid container identifier")

	// Dataset errors
	ErrReadDataset        = fmt.Errorf("could not read dataset")
	ErrReservedColumn     = fmt.Errorf("reserved column name")
	ErrMissingColumns     = fmt.Errorf("missing required columns")
	ErrDuplicateColumn    = fmt.Errorf("duplicate column name")
	ErrMissingKey         = fmt.Errorf("missing unique ID column")
	ErrMissingKeyValue    = fmt.Errorf("missing unique ID value")
	ErrDuplicateKey       = fmt.Errorf("duplicate unique ID values")
	ErrDuplicateSortOrder = fmt.Errorf("duplicate sort order values")
	ErrKeyNotInSchema     = fmt.Errorf("unique ID column missing from remote page")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
