package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("signalwatch run", func() {
	var tmpDir string
	var repoDir string
	var configPath string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "signalwatch-run-*")
		Expect(err).NotTo(HaveOccurred())

		repoDir = filepath.Join(tmpDir, "repo")
		Expect(os.MkdirAll(repoDir, 0755)).To(Succeed())
		runGit(tmpDir, "init", repoDir)
		runGit(repoDir, "checkout", "-b", "main")

		configPath = filepath.Join(repoDir, "signalwatch.yaml")
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	It("reports a jq-detected version bump", func() {
		writeFile(configPath, `
concerns:
  dependency-versions:
    signals:
      - watch:
          type: jq
          include: "package.json"
          query: .version
        report:
          type: handlebars
          template: "{{filePath}}: version changed\n{{{diffText}}}"
`)
		writeFile(filepath.Join(repoDir, "package.json"), `{"version":"1.0.0"}`+"\n")
		runGit(repoDir, "add", ".")
		runGit(repoDir, "commit", "-m", "initial")
		base := strings.TrimSpace(runGitOutput(repoDir, "rev-parse", "HEAD"))

		writeFile(filepath.Join(repoDir, "package.json"), `{"version":"2.0.0"}`+"\n")
		runGit(repoDir, "add", ".")
		runGit(repoDir, "commit", "-m", "bump version")
		head := strings.TrimSpace(runGitOutput(repoDir, "rev-parse", "HEAD"))

		cmd := exec.Command(binaryPath, "run", "--config", configPath, base, head)
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))
		Expect(string(out)).To(ContainSubstring("version changed"))
		Expect(string(out)).To(ContainSubstring(`-"1.0.0"`))
		Expect(string(out)).To(ContainSubstring(`+"2.0.0"`))
	})

	It("reports absence when the jq query's value is unchanged", func() {
		writeFile(configPath, `
concerns:
  dependency-names:
    signals:
      - watch:
          type: jq
          include: "package.json"
          query: .name
        report:
          type: handlebars
          template: "{{filePath}}"
`)
		writeFile(filepath.Join(repoDir, "package.json"), `{"version":"1.0.0"}`+"\n")
		runGit(repoDir, "add", ".")
		runGit(repoDir, "commit", "-m", "initial")
		base := strings.TrimSpace(runGitOutput(repoDir, "rev-parse", "HEAD"))

		writeFile(filepath.Join(repoDir, "package.json"), `{"version":"2.0.0"}`+"\n")
		runGit(repoDir, "add", ".")
		runGit(repoDir, "commit", "-m", "bump version")
		head := strings.TrimSpace(runGitOutput(repoDir, "rev-parse", "HEAD"))

		cmd := exec.Command(binaryPath, "run", "--config", configPath, base, head)
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))
		Expect(string(out)).To(ContainSubstring("No reportable changes."))
	})

	It("reports a case-insensitive regex match", func() {
		writeFile(configPath, `
concerns:
  banner:
    signals:
      - watch:
          type: regex
          include: "banner.txt"
          pattern: foo
          flags: i
        report:
          type: handlebars
          template: "{{filePath}} banner changed: {{{left.artifact}}} -> {{{right.artifact}}}"
`)
		writeFile(filepath.Join(repoDir, "banner.txt"), "foo\n")
		runGit(repoDir, "add", ".")
		runGit(repoDir, "commit", "-m", "initial")
		base := strings.TrimSpace(runGitOutput(repoDir, "rev-parse", "HEAD"))

		writeFile(filepath.Join(repoDir, "banner.txt"), "FOO\n")
		runGit(repoDir, "add", ".")
		runGit(repoDir, "commit", "-m", "shout banner")
		head := strings.TrimSpace(runGitOutput(repoDir, "rev-parse", "HEAD"))

		cmd := exec.Command(binaryPath, "run", "--config", configPath, base, head)
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))
		Expect(string(out)).To(ContainSubstring("foo -> FOO"))
	})

	It("suppresses reports for files that fail the watch's include glob", func() {
		writeFile(configPath, `
concerns:
  dependency-versions:
    signals:
      - watch:
          type: jq
          include: "package.json"
          query: .version
        report:
          type: handlebars
          template: "{{filePath}}"
`)
		writeFile(filepath.Join(repoDir, "other.json"), `{"version":"1.0.0"}`+"\n")
		runGit(repoDir, "add", ".")
		runGit(repoDir, "commit", "-m", "initial")
		base := strings.TrimSpace(runGitOutput(repoDir, "rev-parse", "HEAD"))

		writeFile(filepath.Join(repoDir, "other.json"), `{"version":"2.0.0"}`+"\n")
		runGit(repoDir, "add", ".")
		runGit(repoDir, "commit", "-m", "bump version")
		head := strings.TrimSpace(runGitOutput(repoDir, "rev-parse", "HEAD"))

		cmd := exec.Command(binaryPath, "run", "--config", configPath, base, head)
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))
		Expect(string(out)).To(ContainSubstring("No reportable changes."))
	})
})
