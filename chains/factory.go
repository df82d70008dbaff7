package chains

import (
	"sync"
	"time"

	"github.com/chainpulse/gasfeed/chains/evm"
	"github.com/chainpulse/gasfeed/chains/solana"
	commonerrors "github.com/chainpulse/gasfeed/common/errors"
	commontypes "github.com/chainpulse/gasfeed/common/types"
	"github.com/sirupsen/logrus"
)

// ResolverConstructor represents a function that constructs a fee resolver
// for one chain.
//
// Parameters:
// - config: the configuration for the chain.
// - timeout: the per-RPC-call timeout.
// - logger: the logger for logging purposes.
//
// Returns:
// - commontypes.FeeResolver: the constructed resolver instance.
// - error: an error if the resolver construction fails.
type ResolverConstructor func(config *commontypes.ChainConfig, timeout time.Duration, logger *logrus.Logger) (commontypes.FeeResolver, error)

// ResolverFactory defines the interface for fee resolver creation.
type ResolverFactory interface {
	// RegisterConstructor registers a new resolver constructor for a given chain type.
	//
	// Parameters:
	// - chainType: the chain family to register.
	// - constructor: the constructor function for the family.
	RegisterConstructor(chainType string, constructor ResolverConstructor)

	// CreateResolver creates a new fee resolver based on the configuration.
	//
	// Parameters:
	// - config: the configuration for the chain.
	// - timeout: the per-RPC-call timeout.
	// - logger: the logger for logging purposes.
	//
	// Returns:
	// - commontypes.FeeResolver: the created resolver instance.
	// - error: an error if the chain family has no registered constructor.
	CreateResolver(config *commontypes.ChainConfig, timeout time.Duration, logger *logrus.Logger) (commontypes.FeeResolver, error)
}

type resolverFactory struct {
	// constructors stores the mapping of chain families to their constructors.
	constructors map[string]ResolverConstructor
	// constructorsMutex protects access to the constructors map.
	constructorsMutex sync.RWMutex
}

// NewResolverFactory creates a new instance of the resolver factory with the
// EVM and Solana constructors registered.
//
// Returns:
// - ResolverFactory: the new resolver factory instance.
func NewResolverFactory() ResolverFactory {
	factory := &resolverFactory{
		constructors: make(map[string]ResolverConstructor),
	}

	factory.registerConstructors()

	return factory
}

// RegisterConstructor registers a new resolver constructor.
//
// Parameters:
// - chainType: the chain family to register.
// - constructor: the constructor function for the family.
func (f *resolverFactory) RegisterConstructor(chainType string, constructor ResolverConstructor) {
	f.constructorsMutex.Lock()
	defer f.constructorsMutex.Unlock()

	f.constructors[chainType] = constructor
}

// CreateResolver creates a new fee resolver based on the configuration.
//
// Parameters:
// - config: the configuration for the chain.
// - timeout: the per-RPC-call timeout.
// - logger: the logger for logging purposes.
//
// Returns:
// - commontypes.FeeResolver: the created resolver instance.
// - error: an error if the chain family has no registered constructor.
func (f *resolverFactory) CreateResolver(config *commontypes.ChainConfig, timeout time.Duration, logger *logrus.Logger) (commontypes.FeeResolver, error) {
	f.constructorsMutex.RLock()
	constructor, exists := f.constructors[config.ChainType.String()]
	f.constructorsMutex.RUnlock()

	if !exists {
		return nil, commonerrors.ErrInvalidChainType
	}

	return constructor(config, timeout, logger)
}

// registerConstructors registers the built-in chain family constructors.
func (f *resolverFactory) registerConstructors() {
	f.RegisterConstructor(commontypes.EVM.String(), func(config *commontypes.ChainConfig, timeout time.Duration, logger *logrus.Logger) (commontypes.FeeResolver, error) {
		return evm.NewResolver(config, timeout, logger)
	})

	f.RegisterConstructor(commontypes.SOLANA.String(), func(config *commontypes.ChainConfig, timeout time.Duration, logger *logrus.Logger) (commontypes.FeeResolver, error) {
		return solana.NewResolver(config, timeout, logger)
	})
}
