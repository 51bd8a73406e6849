package workspace

import (
	"context"
	"fmt"

	"github.com/krscott/gitcuttle/internal/gitdriver"
)

// backupRefName returns the namespaced ref a transaction snapshots a
// branch's head into before rewriting it, per spec §4.4's ref-backup
// pattern: "refs/gitcuttle/txn/<txnId>/heads/<branch>".
func backupRefName(txnID, branch string) string {
	return fmt.Sprintf("refs/gitcuttle/txn/%s/heads/%s", txnID, branch)
}

// snapshotBranch records branch's current OID under the txn's backup
// namespace, returning the OID so the caller's rollback closure can
// restore it without a second lookup. Branches that don't exist yet
// (e.g. the step that creates them) snapshot to "" and write no backup
// ref; restoreBranch then deletes the branch instead of resetting it.
func snapshotBranch(ctx context.Context, d *gitdriver.Driver, txnID, branch string) (string, error) {
	oid, err := d.RevParse(ctx, "refs/heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("snapshot branch %s: %w", branch, err)
	}
	if oid == "" {
		return "", nil
	}
	if err := d.UpdateRef(ctx, backupRefName(txnID, branch), oid, ""); err != nil {
		return "", fmt.Errorf("write backup ref for %s: %w", branch, err)
	}
	return oid, nil
}

// restoreBranch points branch back at oid. A blank oid means the
// branch didn't exist at snapshot time, so restoring means deleting
// whatever the failed step left behind.
func restoreBranch(ctx context.Context, d *gitdriver.Driver, branch, oid string) error {
	if oid == "" {
		return d.DeleteBranch(ctx, branch, true)
	}
	return d.UpdateRef(ctx, "refs/heads/"+branch, oid, "")
}

// purgeBackups deletes every backup ref under a transaction's
// namespace, called once a transaction has run to completion
// successfully (§4.4: "a final transaction should clean up the txn
// namespace on success").
func purgeBackups(ctx context.Context, d *gitdriver.Driver, txnID string) error {
	refs, err := d.ForEachRef(ctx, fmt.Sprintf("refs/gitcuttle/txn/%s/", txnID))
	if err != nil {
		return fmt.Errorf("list backup refs: %w", err)
	}
	for refName := range refs {
		if err := d.DeleteRef(ctx, refName); err != nil {
			return fmt.Errorf("purge backup ref %s: %w", refName, err)
		}
	}
	return nil
}
