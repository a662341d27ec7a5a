package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("signalwatch validate", func() {
	var tmpDir string
	var repoDir string
	var configPath string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "signalwatch-validate-*")
		Expect(err).NotTo(HaveOccurred())
		repoDir = filepath.Join(tmpDir, "repo")
		Expect(os.MkdirAll(repoDir, 0755)).To(Succeed())
		runGit(tmpDir, "init", repoDir)
		configPath = filepath.Join(repoDir, "signalwatch.yaml")
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	It("accepts a well-formed configuration", func() {
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
		cmd := exec.Command(binaryPath, "validate", "--config", configPath)
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))
		Expect(string(out)).To(ContainSubstring("Configuration is valid."))
	})

	It("rejects a signal referencing an undefined watch", func() {
		writeFile(configPath, `
concerns:
  dependency-versions:
    signals:
      - watch:
          use: "#defined/watches/missing"
        report:
          type: handlebars
          template: "{{filePath}}"
defined:
  watches: {}
  reports: {}
  signals: {}
`)
		cmd := exec.Command(binaryPath, "validate", "--config", configPath)
		out, err := cmd.CombinedOutput()
		Expect(err).To(HaveOccurred(), "output: %s", string(out))
		Expect(string(out)).To(ContainSubstring("watches 'missing' not found"))
	})

	It("previews which watches a path would match in dry-run mode", func() {
		writeFile(configPath, `
concerns:
  dependency-versions:
    signals:
      - watch:
          use: "#defined/watches/package-version"
        report:
          type: handlebars
          template: "{{filePath}}"
defined:
  watches:
    package-version:
      type: jq
      include: "**/package.json"
      query: .version
  reports: {}
  signals: {}
`)
		cmd := exec.Command(binaryPath, "validate", "--config", configPath, "--dry-run", "sub/package.json")
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))
		Expect(string(out)).To(ContainSubstring("package-version"))
	})
})
