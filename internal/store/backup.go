package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

var backupRe = regexp.MustCompile(`\.backup-(\d+)$`)

// backupNumbers returns the existing backup indices for path, sorted
// ascending.
func backupNumbers(path string) ([]int, error) {
	matches, err := filepath.Glob(path + ".backup-*")
	if err != nil {
		return nil, err
	}
	var nums []int
	for _, m := range matches {
		if sm := backupRe.FindStringSubmatch(m); sm != nil {
			if n, err := strconv.Atoi(sm[1]); err == nil {
				nums = append(nums, n)
			}
		}
	}
	sort.Ints(nums)
	return nums, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Stage through a unique temp name in the same directory so a crash
	// never leaves a half-written file under the final name.
	tmp := filepath.Join(filepath.Dir(dst), "."+uuid.NewString()+".tmp")
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// Backup copies the database file to the next numbered backup name and
// prunes the oldest copies beyond keep. keep <= 0 disables pruning. The
// store must be closed first so the copy is consistent.
func Backup(path string, keep int) (string, error) {
	nums, err := backupNumbers(path)
	if err != nil {
		return "", fmt.Errorf("list backups: %w", err)
	}
	next := 1
	if len(nums) > 0 {
		next = nums[len(nums)-1] + 1
	}
	dst := fmt.Sprintf("%s.backup-%d", path, next)
	if err := copyFile(path, dst); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if keep > 0 {
		nums = append(nums, next)
		for len(nums) > keep {
			old := fmt.Sprintf("%s.backup-%d", path, nums[0])
			if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
				return "", fmt.Errorf("prune backup: %w", err)
			}
			nums = nums[1:]
		}
	}
	return dst, nil
}

// Revert replaces the database file with its most recent backup and
// removes that backup. It returns the backup that was restored.
func Revert(path string) (string, error) {
	nums, err := backupNumbers(path)
	if err != nil {
		return "", fmt.Errorf("list backups: %w", err)
	}
	if len(nums) == 0 {
		return "", fmt.Errorf("no backups for %s", path)
	}
	src := fmt.Sprintf("%s.backup-%d", path, nums[len(nums)-1])
	if err := copyFile(src, path); err != nil {
		return "", fmt.Errorf("restore backup: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("drop restored backup: %w", err)
	}
	return src, nil
}

// Backups lists the backup files for path, oldest first.
func Backups(path string) ([]string, error) {
	nums, err := backupNumbers(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(nums))
	for i, n := range nums {
		out[i] = fmt.Sprintf("%s.backup-%d", path, n)
	}
	return out, nil
}
