package handlers

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// publicRootDir is the directory served by the /public static route.
// It is relative to the working directory so the stored paths resolve
// the same way the static mount does. Image paths persisted on medicine
// documents are relative to this root.
const publicRootDir = "public"

// medicineUploadsDir is where medicine images land, relative to the
// public root.
const medicineUploadsDir = "uploads/medicines"

// uploadAbsPath maps a stored relative upload path onto the public
// root on disk.
func uploadAbsPath(rel string) string {
	return filepath.Join(publicRootDir, filepath.FromSlash(rel))
}

// safeDeleteUpload removes a previously stored upload. Only paths under
// uploads/ inside the public root are eligible; anything else is
// refused so a crafted image path cannot delete arbitrary files.
func safeDeleteUpload(relPath string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := path.Clean("/" + strings.TrimPrefix(trimmed, "/"))
	cleanRel = strings.TrimPrefix(cleanRel, "/")

	if !strings.HasPrefix(cleanRel, "uploads/") {
		return fmt.Errorf("refusing to delete non-upload path: %s", relPath)
	}

	cleanBase := filepath.Clean(publicRootDir)
	cleanTarget := filepath.Clean(uploadAbsPath(cleanRel))
	if cleanTarget != cleanBase && !strings.HasPrefix(cleanTarget, cleanBase+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside public root: %s", relPath)
	}

	if err := os.Remove(cleanTarget); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return nil
}
