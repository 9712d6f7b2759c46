package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and what it returns.

func describeDetectFeatures() string {
	return `Detects which ECMAScript language features JavaScript files use, from ES2016 (exponentiation) to ES2025 (pattern modifiers, Promise.try).

USE WHEN:
- Finding out why a bundle fails on an older browser or Node version
- Reviewing what modern syntax a dependency ships
- Checking a single snippet via the source argument

INTERPRETING RESULTS:
- Each file lists catalog feature names and its minimum edition
- min_edition "unknown" means no cataloged feature was found; the file runs on any supported engine
- Occurrences give the first line and column of each feature (1-based)
- Detection is syntactic: a method call like Object.hasOwn is recognised by its receiver and name

METRICS RETURNED:
- files: path, features, occurrences, min_edition
- summary: files with features, files with errors, minimum/P50/P90 edition
- errors: files that could not be read or parsed`
}

func describeMinimumEdition() string {
	return `Computes the minimum ECMAScript edition needed to run JavaScript files or a source snippet.

USE WHEN:
- Choosing a transpilation target (e.g. a bundler target setting)
- Deciding whether a package can drop a down-level build
- Comparing how modern different parts of a project are

INTERPRETING RESULTS:
- min_edition is the latest edition among all detected features
- "none" means no cataloged feature was used
- p50_edition and p90_edition show how modern typical files are
- by_edition counts files per minimum edition

METRICS RETURNED:
- min_edition, p50_edition, p90_edition, by_edition
- files: path and min_edition for each analysed file`
}

func describeCheckCompatibility() string {
	return `Checks JavaScript files against a target ECMAScript edition and lists every feature that is too new.

USE WHEN:
- Gating CI on a minimum supported runtime
- Explaining a "SyntaxError: Unexpected token" on an old engine
- Auditing a package before lowering its target

INTERPRETING RESULTS:
- passed is true when no file needs an edition after target
- Each violation lists the file, its minimum edition and the offending features with positions
- Fix by transpiling, polyfilling (for built-ins such as Promise.any) or rewriting the construct

METRICS RETURNED:
- target, passed, checked (file count)
- violations: path, min_edition, features[{feature, line, column}]`
}

func describeListCatalog() string {
	return `Lists every ECMAScript feature esmin can detect, with the edition that introduced it.

USE WHEN:
- Looking up which edition introduced a feature
- Understanding feature names returned by the other tools

INTERPRETING RESULTS:
- Entries are ordered by edition, oldest first
- Filter with the edition argument to see one edition's additions

METRICS RETURNED:
- feature, edition, description for each entry`
}
