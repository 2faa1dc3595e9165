package channel

const helpText = `Hi, I'm your blog assistant.

Tell me what you want to write about and I'll draft, edit and publish
articles for you. I can also find or generate images for your posts.

Things you can ask me to do:
  - draft a new article on a topic
  - edit or rewrite an existing draft
  - list your articles or show one in full
  - publish a finished draft
  - search for free stock images
  - generate an illustration from a description
  - remember preferences (tone, default tags, and so on)

Commands:
  /new   - start a fresh conversation
  /help  - show this message`
