package issuance

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"chronicles/core/events"
	corestate "chronicles/core/state"
	"chronicles/crypto"
)

// RegisterRuggedUser records caller as a victim of compromised. The record
// starts unverified; only the admin can verify it.
func (e *Engine) RegisterRuggedUser(ctx context.Context, caller, compromised crypto.Identity) (*RuggedUser, error) {
	var record *RuggedUser
	attrs := []attribute.KeyValue{attribute.String("owner", caller.String())}
	err := e.observe(ctx, "register_rugged_user", attrs, func(ctx context.Context) error {
		if caller.IsZero() {
			return fmt.Errorf("%w: owner required", ErrInvalidDestination)
		}
		if compromised.IsZero() || compromised == caller {
			return fmt.Errorf("%w: %s", ErrInvalidDestination, compromised)
		}
		return e.update(ctx, func(st engineState, buf *eventBuffer) error {
			if _, err := e.configs.Load(st); err != nil {
				return err
			}
			next := &RuggedUser{Owner: caller, CompromisedWallet: compromised}
			if err := st.KVCreate(ruggedKey(e.derived.Config, caller), next); err != nil {
				if errors.Is(err, corestate.ErrKeyExists) {
					return fmt.Errorf("%w: %s", ErrRuggedUserExists, caller)
				}
				return err
			}
			buf.add(events.RuggedUserRegistered{Owner: caller, Compromised: compromised})
			record = next
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// VerifyRuggedUser marks the record of owner as verified. Admin only;
// verifying an already verified record is a no-op.
func (e *Engine) VerifyRuggedUser(ctx context.Context, caller, owner crypto.Identity) (*RuggedUser, error) {
	var record *RuggedUser
	attrs := []attribute.KeyValue{attribute.String("owner", owner.String())}
	err := e.observe(ctx, "verify_rugged_user", attrs, func(ctx context.Context) error {
		return e.update(ctx, func(st engineState, buf *eventBuffer) error {
			cfg, err := e.configs.Load(st)
			if err != nil {
				return err
			}
			if err := requireAdmin(cfg, caller); err != nil {
				return err
			}
			user, ok, err := e.loadRuggedUser(st, owner)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrRuggedUserNotFound, owner)
			}
			record = user
			if user.Verified {
				return nil
			}
			user.Verified = true
			if err := st.KVPut(ruggedKey(e.derived.Config, owner), user); err != nil {
				return err
			}
			buf.add(events.RuggedUserVerified{Owner: owner})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RuggedUser returns the registration record of owner.
func (e *Engine) RuggedUser(ctx context.Context, owner crypto.Identity) (*RuggedUser, error) {
	var record *RuggedUser
	err := e.view(ctx, func(st engineState) error {
		user, ok, err := e.loadRuggedUser(st, owner)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrRuggedUserNotFound, owner)
		}
		record = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (e *Engine) loadRuggedUser(st engineState, owner crypto.Identity) (*RuggedUser, bool, error) {
	user := new(RuggedUser)
	ok, err := st.KVGet(ruggedKey(e.derived.Config, owner), user)
	if err != nil || !ok {
		return nil, ok, err
	}
	return user, true, nil
}
