package reconcile

import (
	"context"
	"errors"

	"schema-manager/core/pocketbase"
	"schema-manager/core/schema"

	"go.uber.org/zap"
)

// PlanCollection looks up target remotely and decides which write converges it.
// An absent collection is planned for creation. A lookup that fails for another reason
// is treated the same way; the create attempt then surfaces the real error.
func (r *Reconciler) PlanCollection(ctx context.Context, target schema.Collection) Action {
	return r.plan(ctx, r.logger, target)
}

// ApplyAction performs a planned write. It does not write when the reconciler is in dry-run mode.
func (r *Reconciler) ApplyAction(ctx context.Context, action Action) Result {
	return r.apply(ctx, r.logger, action, r.opts.DryRun)
}

func (r *Reconciler) plan(ctx context.Context, l *zap.Logger, target schema.Collection) Action {
	l = l.With(zap.String("collection", target.Name))

	existing, err := r.store.GetCollection(ctx, target.Name)
	if err != nil {
		action := Action{Type: ActionCreate, Collection: target.Name, Target: target.Name, Body: target}
		if !errors.Is(err, pocketbase.ErrNotFound) {
			l.Warn("Collection lookup failed, attempting create", zap.Error(err))
			action.Reason = "lookup failed: " + err.Error()
		}
		return action
	}

	res := r.differ.Diff(existing, target)
	addr := existing.ID
	if addr == "" {
		addr = target.Name
	}
	if res.IsNoop() {
		return Action{Type: ActionNone, Collection: target.Name, Target: addr}
	}
	return Action{
		Type:       ActionPatch,
		Collection: target.Name,
		Target:     addr,
		Patch:      res.Patch,
		Changes:    res.Changes,
	}
}

func (r *Reconciler) apply(ctx context.Context, l *zap.Logger, action Action, dryRun bool) Result {
	l = l.With(zap.String("collection", action.Collection))
	res := Result{Collection: action.Collection, Changes: action.Changes}

	switch action.Type {
	case ActionNone:
		res.Status = StatusUpToDate
		l.Debug("Collection up to date")

	case ActionCreate:
		res.Sections = []string{"collection"}
		if dryRun {
			res.Status = StatusWouldCreate
			return res
		}
		if _, err := r.store.CreateCollection(ctx, action.Body); err != nil {
			l.Error("Create failed", zap.Error(err))
			return failed(res, err)
		}
		res.Status = StatusCreated
		l.Info("Collection created", zap.Int("fields", len(action.Body.Fields)))

	case ActionPatch:
		res.Sections = action.Patch.Sections()
		if dryRun {
			res.Status = StatusWouldPatch
			return res
		}
		if _, err := r.store.UpdateCollection(ctx, action.Target, action.Patch); err != nil {
			l.Error("Patch failed", zap.Strings("sections", res.Sections), zap.Error(err))
			return failed(res, err)
		}
		res.Status = StatusPatched
		l.Info("Collection patched", zap.Strings("sections", res.Sections))

	default:
		res.Status = StatusFailed
		res.Error = action.Reason
	}

	return res
}

func failed(res Result, err error) Result {
	res.Status = StatusFailed
	res.Error = err.Error()
	res.StatusCode = pocketbase.StatusCode(err)
	return res
}
