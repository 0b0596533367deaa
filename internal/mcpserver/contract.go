package mcpserver

// FolderLayoutContract describes the canonical on-disk layout that every
// document folder follows. External tools may rely on exactly this shape.
const FolderLayoutContract = `# Othala Document Folder Layout Contract

Every document in the library is a *document folder*: one directory treated
as a single atomic unit.

## Layout

` + "```" + `
<library>/<Category>/<FolderName>/
    <FolderName>.md      # primary content file
    images/              # attachments directory
        <asset files>
` + "```" + `

## Rules

1. **Exactly one primary content file.** It is named after the folder
   (` + "`" + `<FolderName>.md` + "`" + `). Folders that predate this convention may use the
   legacy name ` + "`" + `index.md` + "`" + ` instead; both are recognized, never both at once.
2. **The attachments directory is always** ` + "`" + `images/` + "`" + `**, directly inside the
   folder.** It is created on first use; its absence does not invalidate the
   folder.
3. **Attachment references are relative.** Markdown bodies reference assets
   as ` + "`" + `images/<filename>` + "`" + ` and this form is preserved across every
   operation, including consolidation.
4. **Category is positional.** A folder's category is the name of its parent
   directory; it is not stored inside the folder.
5. **The folder moves as a unit.** Content file and attachments are never
   separated by move, rename, delete, or consolidate.
6. **Folder names are sanitized.** Path separators and characters illegal on
   common file systems never appear in folder names.
7. **Encoding** is UTF-8 with a trailing newline.
`
