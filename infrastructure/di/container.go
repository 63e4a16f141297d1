package di

import (
	"docgraph/application/commands/bus"
	querybus "docgraph/application/queries/bus"
	domainconfig "docgraph/domain/config"
	"docgraph/infrastructure/config"
	"docgraph/interfaces/http/rest"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domainconfig.DomainConfig
	Logger       *zap.Logger
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	Router       *rest.Router
}
