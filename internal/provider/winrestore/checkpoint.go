package winrestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/restoresentry/restoresentry-go/internal/provider"
)

// restorePointTypeNames maps the WMI RestorePointType enumeration to the
// labels Get-ComputerRestorePoint prints.
var restorePointTypeNames = map[int]string{
	0:  "APPLICATION_INSTALL",
	1:  "APPLICATION_UNINSTALL",
	10: "DEVICE_DRIVER_INSTALL",
	12: "MODIFY_SETTINGS",
	13: "CANCELLED_OPERATION",
}

// rawRestorePoint mirrors one element of the JSON emitted by
// Get-ComputerRestorePoint | ConvertTo-Json. CreationTime arrives in
// whichever encoding the shell picked; see provider.NormalizeTimestamp.
type rawRestorePoint struct {
	SequenceNumber   int64  `json:"SequenceNumber"`
	Description      string `json:"Description"`
	CreationTime     string `json:"CreationTime"`
	RestorePointType int    `json:"RestorePointType"`
}

// decodeRestorePoints parses the ConvertTo-Json output. The @(...) wrapper in
// the query script forces an array even for a single restore point, but an
// empty subsystem prints nothing at all.
func decodeRestorePoints(out string) ([]rawRestorePoint, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil, nil
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
		return nil, fmt.Errorf("unexpected restore point listing: %w", err)
	}

	points := make([]rawRestorePoint, 0, len(entries))
	for _, entry := range entries {
		var rp rawRestorePoint
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &rp,
			WeaklyTypedInput: true,
			TagName:          "json",
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(entry); err != nil {
			return nil, fmt.Errorf("decoding restore point entry: %w", err)
		}
		points = append(points, rp)
	}
	return points, nil
}

// toCheckpoint normalizes one raw restore point. Normalization failure keeps
// the entry but flags it so callers exclude it from age arithmetic.
func toCheckpoint(rp rawRestorePoint) provider.Checkpoint {
	cp := provider.Checkpoint{
		ID:           rp.SequenceNumber,
		Description:  rp.Description,
		RawCreatedAt: rp.CreationTime,
		Type:         restorePointTypeNames[rp.RestorePointType],
	}
	if cp.Type == "" {
		cp.Type = fmt.Sprintf("TYPE_%d", rp.RestorePointType)
	}

	ts, err := provider.NormalizeTimestamp(rp.CreationTime)
	if err == nil {
		cp.CreatedAt = ts
		cp.TimeValid = true
	}
	return cp
}

// ListCheckpoints returns the current restore point inventory, ordered by
// ascending sequence number.
func (c *Client) ListCheckpoints(ctx context.Context) ([]provider.Checkpoint, error) {
	const script = `@(Get-ComputerRestorePoint -ErrorAction Stop | ` +
		`Select-Object SequenceNumber, Description, CreationTime, RestorePointType) | ConvertTo-Json`

	var checkpoints []provider.Checkpoint

	listOperation := func(innerCtx context.Context) error {
		out, err := c.powershell(innerCtx, "ListCheckpoints", script)
		if err != nil {
			return err
		}

		raw, decodeErr := decodeRestorePoints(out)
		if decodeErr != nil {
			return provider.NewError(provider.KindUnknown, "ListCheckpoints", decodeErr.Error(), decodeErr)
		}

		checkpoints = checkpoints[:0]
		for _, rp := range raw {
			checkpoints = append(checkpoints, toCheckpoint(rp))
		}
		sort.Slice(checkpoints, func(i, j int) bool { return checkpoints[i].ID < checkpoints[j].ID })
		return nil
	}

	if err := c.executeWithRetry(ctx, "ListCheckpoints", listOperation); err != nil {
		return nil, err
	}
	return checkpoints, nil
}

// CreateCheckpoint requests a new restore point and returns the created
// entry. The subsystem silently skips creation when its frequency floor is
// hit, surfacing only a warning; the script promotes that warning to a hard
// error so the caller sees a typed too-soon failure. force drops the
// subsystem floor to zero for this call; the orchestrator re-syncs the floor
// on the next cycle.
func (c *Client) CreateCheckpoint(ctx context.Context, description string, force bool) (provider.Checkpoint, error) {
	if force {
		if err := c.SetMinimumCreationIntervalMinutes(ctx, 0); err != nil {
			return provider.Checkpoint{}, err
		}
	}

	script := fmt.Sprintf(
		`$wv = $null; `+
			`Checkpoint-Computer -Description '%s' -RestorePointType 'MODIFY_SETTINGS' -ErrorAction Stop -WarningVariable wv; `+
			`if ($wv) { Write-Error ($wv -join '; ') -ErrorAction Stop }`,
		escapeSingleQuoted(description))

	createOperation := func(innerCtx context.Context) error {
		_, err := c.powershell(innerCtx, "CreateCheckpoint", script)
		return err
	}

	if err := c.executeWithRetry(ctx, "CreateCheckpoint", createOperation); err != nil {
		return provider.Checkpoint{}, err
	}

	// Checkpoint-Computer does not report the new sequence number; re-list
	// and pick the newest entry carrying our description.
	inventory, err := c.ListCheckpoints(ctx)
	if err != nil {
		return provider.Checkpoint{}, err
	}
	for i := len(inventory) - 1; i >= 0; i-- {
		if inventory[i].Description == description {
			return inventory[i], nil
		}
	}
	return provider.Checkpoint{}, provider.NewError(provider.KindUnknown, "CreateCheckpoint",
		"restore point was accepted but does not appear in the inventory", nil)
}

// DeleteCheckpoint removes a single restore point by sequence number via
// SRRemoveRestorePoint in srclient.dll. There is no cmdlet for targeted
// deletion; vssadmin can only drop the oldest or everything.
func (c *Client) DeleteCheckpoint(ctx context.Context, id int64) error {
	script := fmt.Sprintf(
		`$sig = '[DllImport("srclient.dll")] public static extern int SRRemoveRestorePoint(int index);'; `+
			`$sr = Add-Type -MemberDefinition $sig -Name 'SRClient' -Namespace 'RestoreSentry' -PassThru; `+
			`$rc = $sr::SRRemoveRestorePoint(%d); `+
			`if ($rc -ne 0) { Write-Error "SRRemoveRestorePoint returned $rc" -ErrorAction Stop }`,
		id)

	deleteOperation := func(innerCtx context.Context) error {
		_, err := c.powershell(innerCtx, "DeleteCheckpoint", script)
		return err
	}

	return c.executeWithRetry(ctx, "DeleteCheckpoint", deleteOperation)
}

// EnableRestore turns System Restore on for the system drive and resizes the
// shadow storage quota. Both steps are idempotent.
func (c *Client) EnableRestore(ctx context.Context, quotaPercent int) error {
	enableScript := fmt.Sprintf(`Enable-ComputerRestore -Drive '%s\' -ErrorAction Stop`, c.Drive)

	enableOperation := func(innerCtx context.Context) error {
		_, err := c.powershell(innerCtx, "EnableRestore", enableScript)
		return err
	}
	if err := c.executeWithRetry(ctx, "EnableRestore", enableOperation); err != nil {
		return err
	}

	quotaOperation := func(innerCtx context.Context) error {
		_, stderr, err := c.runner.Run(innerCtx, "vssadmin",
			"resize", "shadowstorage",
			"/for="+c.Drive, "/on="+c.Drive,
			fmt.Sprintf("/maxsize=%d%%", quotaPercent))
		if err != nil {
			return classify("SetQuota", stderr, err)
		}
		return nil
	}
	return c.executeWithRetry(ctx, "SetQuota", quotaOperation)
}

// SetMinimumCreationIntervalMinutes writes the subsystem's own
// creation-frequency floor. Zero disables the floor entirely.
func (c *Client) SetMinimumCreationIntervalMinutes(ctx context.Context, n int) error {
	script := fmt.Sprintf(
		`New-ItemProperty -Path 'HKLM:\SOFTWARE\Microsoft\Windows NT\CurrentVersion\SystemRestore' `+
			`-Name 'SystemRestorePointCreationFrequency' -PropertyType DWord -Value %d -Force -ErrorAction Stop | Out-Null`,
		n)

	setOperation := func(innerCtx context.Context) error {
		_, err := c.powershell(innerCtx, "SetCreationInterval", script)
		return err
	}
	return c.executeWithRetry(ctx, "SetCreationInterval", setOperation)
}

func escapeSingleQuoted(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
