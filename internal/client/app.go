package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"authkeeper/internal/common"
)

// App glues the API client, the token store, and interactive input into the
// authctl commands.
type App struct {
	api    *Client
	store  *TokenStore
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(api *Client, store *TokenStore, input io.Reader, out io.Writer) *App {
	return &App{
		api:    api,
		store:  store,
		reader: bufio.NewReader(input),
		out:    out,
	}
}

// Register prompts for credentials, creates an account, and stores the first
// token pair. The password bytes are wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	pair, err := a.api.Register(ctx, email, password)
	if err != nil {
		return err
	}

	if err := a.store.Save(pair); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registered and logged in.")
	return nil
}

// Login prompts for credentials and stores the resulting token pair.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	pair, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if err := a.store.Save(pair); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

// Refresh rotates the stored refresh token. The old pair is replaced on disk
// only after the server accepted the exchange; the presented token is spent
// either way, so a failed save means logging in again.
func (a *App) Refresh(ctx context.Context) error {
	pair, err := a.loadPair()
	if err != nil {
		return err
	}

	fresh, err := a.api.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		return err
	}

	if err := a.store.Save(fresh); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Tokens refreshed.")
	return nil
}

// Whoami prints the identity embedded in the stored access token.
func (a *App) Whoami(ctx context.Context) error {
	pair, err := a.loadPair()
	if err != nil {
		return err
	}

	identity, err := a.api.Whoami(ctx, pair.AccessToken)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "id: %d\nname: %s\nemail: %s\n", identity.ID, identity.Name, identity.Email)
	return nil
}

// Session prints the expiry of the current server-side session.
func (a *App) Session(ctx context.Context) error {
	pair, err := a.loadPair()
	if err != nil {
		return err
	}

	session, err := a.api.ActiveSession(ctx, pair.AccessToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Fprintln(a.out, "No active session.")
			return nil
		}
		return err
	}

	fmt.Fprintf(a.out, "Session valid until %s\n", session.ExpiresAt)
	return nil
}

// Logout revokes the stored refresh token and clears the token file. The
// local file is cleared even if the server call fails, since revocation of an
// unknown token succeeds server-side anyway.
func (a *App) Logout(ctx context.Context) error {
	pair, err := a.loadPair()
	if err != nil {
		return err
	}

	apiErr := a.api.Logout(ctx, pair.RefreshToken)
	if err := a.store.Clear(); err != nil {
		return err
	}
	if apiErr != nil {
		return apiErr
	}

	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// LogoutAll revokes every session of the authenticated user.
func (a *App) LogoutAll(ctx context.Context) error {
	pair, err := a.loadPair()
	if err != nil {
		return err
	}

	if err := a.api.LogoutAll(ctx, pair.AccessToken); err != nil {
		return err
	}
	if err := a.store.Clear(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Logged out everywhere.")
	return nil
}

func (a *App) loadPair() (*TokenPair, error) {
	pair, err := a.store.Load()
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errors.New("not logged in, run `authctl login` first")
		}
		return nil, err
	}
	return pair, nil
}
