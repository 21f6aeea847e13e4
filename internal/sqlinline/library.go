package sqlinline

const QSelectCollection = `--sql f1733cf0-fb92-4a5c-acd5-c5f0a929ec9d
select id, name
from collections
where id = $1::text
limit 1;
`

const QListCollectionImages = `--sql b272c227-581c-428f-b27e-5b3b34015924
select id, collection_id, path, width, height, format
from images
where collection_id = $1::text
  and deleted_at is null
order by filename asc, id asc;
`

const QCountCollectionImages = `--sql bc2da927-1d75-4bee-9bb7-e04c7d8d0fb1
select count(*)::int
from images
where collection_id = $1::text
  and deleted_at is null;
`

const QSelectImage = `--sql a71237fd-84ed-4a54-9dee-5b3f560fe600
select id, collection_id, path, width, height, format
from images
where id = $1::text
  and deleted_at is null
limit 1;
`

const QExistingImageIDs = `--sql a8954f1e-491b-425e-9df0-cf15dd14d992
select id
from images
where id = any($1::text[])
  and deleted_at is null;
`
