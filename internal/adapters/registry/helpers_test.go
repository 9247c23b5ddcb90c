package registry_test

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return log
}

func sha256Of(data []byte) domain.Checksum {
	sum := sha256.Sum256(data)
	return domain.Checksum{Algorithm: domain.ChecksumSHA256, Hex: hex.EncodeToString(sum[:])}
}

func record(version string, checksum domain.Checksum) domain.IndexRecord {
	return domain.IndexRecord{Version: domain.MustParseVersion(version), Deps: []domain.IndexDependency{}, Checksum: checksum}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, data, domain.FilePerm))
}
