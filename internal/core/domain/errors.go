package domain

import "go.trai.ch/zerr"

var (
	// ErrInvalidPackageName is returned when a package name does not match the identifier grammar.
	ErrInvalidPackageName = zerr.New("invalid package name")

	// ErrReservedPackageName is returned when a package name collides with a Cairo keyword.
	ErrReservedPackageName = zerr.New("package name is a reserved Cairo keyword")

	// ErrInvalidVersion is returned when a string is not a valid semantic version.
	ErrInvalidVersion = zerr.New("invalid semantic version")

	// ErrInvalidVersionReq is returned when a version requirement cannot be parsed.
	ErrInvalidVersionReq = zerr.New("invalid version requirement")

	// ErrInvalidSourceID is returned when a source url cannot be parsed.
	ErrInvalidSourceID = zerr.New("invalid source id")

	// ErrUnsupportedSourceKind is returned when a pretty-url carries an unknown kind prefix.
	ErrUnsupportedSourceKind = zerr.New("unsupported source protocol")

	// ErrInvalidTargetKind is returned when a target kind is not a valid identifier.
	ErrInvalidTargetKind = zerr.New("invalid target kind")

	// ErrInvalidEdition is returned when a manifest names an unknown edition.
	ErrInvalidEdition = zerr.New("unknown edition")

	// ErrUnknownFeature is returned when a requested feature is not declared.
	ErrUnknownFeature = zerr.New("unknown feature")

	// ErrInvalidChecksum is returned when a checksum string is malformed.
	ErrInvalidChecksum = zerr.New("invalid checksum")

	// ErrChecksumMismatch is returned when downloaded data does not match its expected checksum.
	ErrChecksumMismatch = zerr.New("failed to verify the checksum of downloaded archive")

	// ErrManifestNotFound is returned when no Scarb.toml can be found.
	ErrManifestNotFound = zerr.New("could not find Scarb.toml in current directory or any parent directory")

	// ErrManifestReadFailed is returned when the manifest file cannot be read.
	ErrManifestReadFailed = zerr.New("failed to read manifest")

	// ErrManifestParseFailed is returned when the manifest is not valid TOML or has wrong field types.
	ErrManifestParseFailed = zerr.New("failed to parse manifest")

	// ErrManifestInvalid is returned when a manifest parses but violates a validation rule.
	ErrManifestInvalid = zerr.New("invalid manifest")

	// ErrPatchOutsideRoot is returned when a [patch] table appears outside the workspace root.
	ErrPatchOutsideRoot = zerr.New("the [patch] section can only be used in the workspace root manifest")

	// ErrNestedWorkspace is returned when a workspace member declares its own [workspace] table.
	ErrNestedWorkspace = zerr.New("workspace members cannot declare a [workspace] section")

	// ErrWorkspaceInheritance is returned when a field asks for inheritance but the workspace does not define it.
	ErrWorkspaceInheritance = zerr.New("field is not defined in [workspace.package] or [workspace.dependencies]")

	// ErrPackageNotFound is returned when a dependency cannot be located in any source.
	ErrPackageNotFound = zerr.New("package not found")

	// ErrVersionConflict is returned when dependency resolution fails.
	ErrVersionConflict = zerr.New("version solving failed")

	// ErrAuditViolation is returned when an unaudited dependency is selected under require-audits.
	ErrAuditViolation = zerr.New("dependency is not allowed when audit requirement is enabled")

	// ErrDuplicatePackageSources is returned when the same package name resolves from two sources.
	ErrDuplicatePackageSources = zerr.New("found dependencies on the same package coming from incompatible sources")

	// ErrLockfileReadFailed is returned when Scarb.lock cannot be read or parsed.
	ErrLockfileReadFailed = zerr.New("failed to read lockfile")

	// ErrLockfileWriteFailed is returned when Scarb.lock cannot be written.
	ErrLockfileWriteFailed = zerr.New("failed to write lockfile")

	// ErrNetwork is returned when a network request fails.
	ErrNetwork = zerr.New("network request failed")

	// ErrOffline is returned when a network request is needed in offline mode.
	ErrOffline = zerr.New("cannot access the network in offline mode")

	// ErrRegistryProtocol is returned when a registry replies with unexpected data.
	ErrRegistryProtocol = zerr.New("registry protocol violation")

	// ErrUnsupportedIndexVersion is returned when the registry config declares an unknown index version.
	ErrUnsupportedIndexVersion = zerr.New("unsupported index version")

	// ErrPublishUnsupported is returned by every source backend for publish requests.
	ErrPublishUnsupported = zerr.New("publishing is not supported by this source")

	// ErrTemplateURL is returned when an index url template uses an unavailable placeholder.
	ErrTemplateURL = zerr.New("invalid template url")

	// ErrGitCommandFailed is returned when a git subprocess exits unsuccessfully.
	ErrGitCommandFailed = zerr.New("git command failed")

	// ErrLockFailed is returned when an advisory file lock cannot be acquired.
	ErrLockFailed = zerr.New("failed to lock file")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrTarballReservedName is returned when a package ships a file whose name is reserved inside tarballs.
	ErrTarballReservedName = zerr.New("invalid inclusion of reserved files in package")

	// ErrUnpublishableDependency is returned when a packaged manifest depends on a package without a version requirement.
	ErrUnpublishableDependency = zerr.New("all dependencies must have a version requirement specified when packaging")

	// ErrTarballInvalid is returned when an archive is malformed or escapes its root.
	ErrTarballInvalid = zerr.New("invalid package archive")

	// ErrPluginLoadFailed is returned when a procedural macro library cannot be loaded.
	ErrPluginLoadFailed = zerr.New("failed to load procedural macro plugin")

	// ErrPluginSymbolMissing is returned when a plugin library lacks a required symbol.
	ErrPluginSymbolMissing = zerr.New("procedural macro plugin is missing a required symbol")

	// ErrPluginUnsupportedABI is returned when a plugin advertises an unknown ABI generation.
	ErrPluginUnsupportedABI = zerr.New("unsupported procedural macro ABI version")

	// ErrDuplicateExpansion is returned when an expansion name is defined more than once.
	ErrDuplicateExpansion = zerr.New("duplicate expansions defined for procedural macros")

	// ErrExpansionFailed is returned when a plugin expansion reports an error diagnostic.
	ErrExpansionFailed = zerr.New("procedural macro expansion failed")

	// ErrMalformedServerRequest is returned when the proc-macro server reads a line that is not a request.
	ErrMalformedServerRequest = zerr.New("malformed proc-macro server request")

	// ErrUnknownServerMethod is returned for a proc-macro server request naming an unknown method.
	ErrUnknownServerMethod = zerr.New("unknown proc-macro server method")

	// ErrUnknownMacroScope is returned when a request names a component without procedural macros.
	ErrUnknownMacroScope = zerr.New("no procedural macros in scope")

	// ErrPluginBuildFailed is returned when a procedural macro package fails to build.
	ErrPluginBuildFailed = zerr.New("failed to build procedural macro plugin")

	// ErrPrebuiltNotAllowed is returned when a non-local plugin package lacks an allowed prebuilt binary.
	ErrPrebuiltNotAllowed = zerr.New("procedural macro package must be a local path package or ship an allowed prebuilt library")

	// ErrCompilationFailed is returned when the Cairo compiler reports errors for a unit.
	ErrCompilationFailed = zerr.New("could not compile")

	// ErrCompilerNotFound is returned when no Cairo compiler executable is configured or found.
	ErrCompilerNotFound = zerr.New("cairo compiler executable not found")

	// ErrBuildFailed is returned when the build driver finishes with at least one failed unit.
	ErrBuildFailed = zerr.New("build failed")

	// ErrFingerprintFailed is returned when a component fingerprint cannot be computed.
	ErrFingerprintFailed = zerr.New("failed to compute fingerprint")

	// ErrFingerprintWriteFailed is returned when a fingerprint file cannot be written.
	ErrFingerprintWriteFailed = zerr.New("failed to write fingerprint")

	// ErrStoreReadFailed is returned when an incremental artifact cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read incremental artifact")

	// ErrStoreWriteFailed is returned when an incremental artifact cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write incremental artifact")

	// ErrUnsupportedMetadataVersion is returned for metadata format versions other than the supported one.
	ErrUnsupportedMetadataVersion = zerr.New("metadata version not supported")

	// ErrConfigReadFailed is returned when the user config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the user config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrCairoVersionMismatch is returned when a package requires a different Cairo version than the one in use.
	ErrCairoVersionMismatch = zerr.New("the required Cairo version of each package must match the current Cairo version")

	// ErrNoMatchingTarget is returned when a target filter matches nothing.
	ErrNoMatchingTarget = zerr.New("no targets match the given filter")

	// ErrNoMatchingPackage is returned when a packages filter matches no workspace member.
	ErrNoMatchingPackage = zerr.New("package filter did not match any workspace member")
)
