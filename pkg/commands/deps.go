package commands

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/client"
	"github.com/pantos-io/client-library/deployments"
	"github.com/pantos-io/client-library/tokens"
	"github.com/pantos-io/client-library/transfers"
)

// PasswordEnvVar names the environment variable holding the keystore password.
const PasswordEnvVar = "PANTOS_KEYSTORE_PASSWORD"

// Library is the part of the client library the commands use.
type Library interface {
	DecryptPrivateKey(ctx context.Context, blockchain chain.Blockchain, keystore string, password string) (chain.PrivateKey, error)
	ResolveAccount(ctx context.Context, blockchain chain.Blockchain, account chain.AccountID) (chain.Address, error)
	RetrieveTokenBalance(ctx context.Context, req tokens.BalanceRequest) (chain.Amount, error)
	RetrieveServiceNodeBids(ctx context.Context, source, destination chain.Blockchain, feeInMainUnit bool) (map[chain.Address][]chain.ServiceNodeBid, error)
	TransferTokens(ctx context.Context, req transfers.TransferRequest) (transfers.TaskInfo, error)
	GetTokenTransferStatus(ctx context.Context, req transfers.StatusRequest) (*transfers.TokenTransferStatus, error)
	DeployToken(ctx context.Context, req deployments.DeploymentRequest) (uuid.UUID, error)
}

// client.Client should comply with the Library interface
var _ Library = &client.Client{}

// LibraryLoaderFunc creates the library from the configuration file at configPath.
type LibraryLoaderFunc func(configPath string, opts ...client.Option) (Library, error)

// PasswordReaderFunc returns the password of a keystore.
type PasswordReaderFunc func() (string, error)

// defaultLibraryLoader is the production implementation that loads the client library.
func defaultLibraryLoader(configPath string, opts ...client.Option) (Library, error) {
	return client.Load(configPath, opts...)
}

// defaultPasswordReader reads the keystore password from PasswordEnvVar.
func defaultPasswordReader() (string, error) {
	password, ok := os.LookupEnv(PasswordEnvVar)
	if !ok {
		return "", errors.New("keystore password not set: export " + PasswordEnvVar)
	}

	return password, nil
}

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// LibraryLoader creates the client library.
	// Default: client.Load
	LibraryLoader LibraryLoaderFunc

	// PasswordReader returns the keystore password.
	// Default: the PANTOS_KEYSTORE_PASSWORD environment variable
	PasswordReader PasswordReaderFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.LibraryLoader == nil {
		d.LibraryLoader = defaultLibraryLoader
	}
	if d.PasswordReader == nil {
		d.PasswordReader = defaultPasswordReader
	}
}
