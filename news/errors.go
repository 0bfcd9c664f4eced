package news

import "errors"

// Failure kinds surfaced by Service. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("article not found")
	ErrInvalidIdentifier = errors.New("invalid article id")
	ErrInvalidPagination = errors.New("invalid pagination")
	ErrMissingAddress    = errors.New("dag_address is required")

	// ErrCrawlFailure is a business outcome: the page could not be turned into an article
	ErrCrawlFailure       = errors.New("news is not crawlable")
	ErrPersistenceFailure = errors.New("failed to store news article")

	ErrAlreadyMinted  = errors.New("article already minted")
	ErrMintInProgress = errors.New("article is being minted")
	ErrMintTransport  = errors.New("failed to interact with metagraph")
	ErrMintProtocol   = errors.New("failed to mint NFT on metagraph")
)
