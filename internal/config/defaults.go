package config

// Default values applied by ApplyDefaults.
const (
	DefaultRepoTemplate = "https://github.com/cloudify-cosmo/{name}.git"
	DefaultDocsDir      = "docs"
	DefaultToolCommand  = "sphinx-versioning"
	DefaultPagesBranch  = "gh-pages"
	DefaultRemote       = "origin"
	DefaultRootRef      = "master"
	DefaultSeedGlob     = "README*"
	DefaultDomainName   = "cfy"
	DefaultBlueprint    = "../plugin.yaml"
)

// DefaultBuilderArgs builds branches and tags straight from the remote, so no fetch is needed.
func DefaultBuilderArgs() []string {
	return []string{
		"-c", "{repo_dir}",
		"build", "{docs_dir}", "{out_dir}",
		"--root-ref", "{branch}",
		"--banner-main-ref", "{branch}",
		"--show-banner",
	}
}

// DefaultPublishArgs pushes every version of the docs to the pages branch.
func DefaultPublishArgs() []string {
	return []string{"-c", "{repo_dir}", "-r", "{root_ref}", "push", "docs", "{branch}", "."}
}

// ApplyDefaults populates missing fields. It is idempotent.
func (c *Config) ApplyDefaults() {
	if c.RepoTemplate == "" {
		c.RepoTemplate = DefaultRepoTemplate
	}
	for i := range c.Components {
		comp := &c.Components[i]
		if comp.Repo == "" {
			comp.Repo = expandRepoTemplate(c.RepoTemplate, comp.Name)
			comp.templated = true
		}
		if comp.DocsDir == "" {
			comp.DocsDir = DefaultDocsDir
		}
	}

	if c.Builder.Command == "" {
		c.Builder.Command = DefaultToolCommand
		if len(c.Builder.Args) == 0 {
			c.Builder.Args = DefaultBuilderArgs()
		}
	}

	p := &c.Publish
	if p.Branch == "" {
		p.Branch = DefaultPagesBranch
	}
	if p.Remote == "" {
		p.Remote = DefaultRemote
	}
	if p.RootRef == "" {
		p.RootRef = DefaultRootRef
	}
	if p.SeedGlob == "" {
		p.SeedGlob = DefaultSeedGlob
	}
	if p.Command == "" {
		p.Command = DefaultToolCommand
		if len(p.Args) == 0 {
			p.Args = DefaultPublishArgs()
		}
	}

	if c.Domain.Name == "" {
		c.Domain.Name = DefaultDomainName
	}
	if len(c.Domain.Blueprints) == 0 {
		c.Domain.Blueprints = []string{DefaultBlueprint}
	}

	c.Retry.applyDefaults()
	c.Logging.applyDefaults()
}
