package mcpserver

// ContentFormatContract describes how site content is laid out on disk and
// what its frontmatter looks like, for LLM consumers writing new content.
const ContentFormatContract = `# Saffi Content Format

The site is built from Markdown files under one content directory.

## Layout

- Files directly in the content directory belong to the root group.
- Each first-level directory is a group. Anything nested deeper is ignored.
- ` + "`_index.md`" + ` in a directory is that group's index page.
- A file whose name starts with a date (` + "`YYYY-MM-DD`" + `) is a post; any other file is a page.
- Only ` + "`.md`" + ` and ` + "`.markdown`" + ` files are read. Hidden files and paths matched by
  ` + "`.gitignore`" + ` or ` + "`.ignore`" + ` in the content directory are skipped.

## Names

- Group directories and tags: lowercase ASCII letters and ` + "`-`" + `.
- Page and post file names (without extension): lowercase ASCII letters, digits and ` + "`-`" + `.

## Frontmatter

Every file starts with a TOML block between two ` + "`---`" + ` lines. Unknown keys are errors.

Page:

` + "```" + `markdown
---
title = "About"        # required
draft = false          # optional
---
Body in Markdown.
` + "```" + `

Post (` + "`blog/2024-01-02-hello.md`" + `, dated by its file name):

` + "```" + `markdown
---
tags = ["go", "notes"] # optional
draft = false          # optional
---
Body in Markdown.
` + "```" + `

## Threads

A post with more than one frontmatter block is a thread. The first block
holds the tags for the whole thread; each later block starts a new dated
entry and may only set ` + "`date`" + ` (required) and ` + "`draft`" + `:

` + "```" + `markdown
---
tags = ["build-log"]
---
First entry, dated by the file name.
---
date = 2024-01-09
---
Second entry.
` + "```" + `

Draft posts, pages and thread entries are hidden unless the site runs with drafts enabled.
A thread whose entries are all drafts is hidden entirely.
`
