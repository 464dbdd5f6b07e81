// test/mocks/mocks.go

// Package mocks contains generated mocks for the application's interfaces.
// To regenerate mocks, run `make mocks` from the root directory.
package mocks

//go:generate mockgen -source=../../internal/core/ports/sale_repository.go -destination=sale_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/stock_ledger.go -destination=stock_ledger_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/product_repository.go -destination=product_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/sale_service.go -destination=sale_service_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/stock_service.go -destination=stock_service_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/cache.go -destination=cache_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/storage.go -destination=storage_mock.go -package=mocks
